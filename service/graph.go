package service

import "icarus-backend/models"

// graph accumulates a structure as it is written so the response echoes
// database ids in write order.
type graph struct {
	assignmentID       uint
	concepts           []models.ConceptPayload
	conceptSeen        map[uint]bool
	questions          []models.QuestionPayload
	questionIndex      map[uint]int
	links              []models.QuestionConceptLink
	linkSeen           map[models.QuestionConceptLink]bool
	assignmentConcepts []uint
}

func newGraph(assignmentID uint) *graph {
	return &graph{
		assignmentID:  assignmentID,
		conceptSeen:   make(map[uint]bool),
		questionIndex: make(map[uint]int),
		linkSeen:      make(map[models.QuestionConceptLink]bool),
	}
}

func (g *graph) addConcept(c *models.Concept) {
	if g.conceptSeen[c.ID] {
		return
	}
	g.conceptSeen[c.ID] = true
	id := c.ID
	g.concepts = append(g.concepts, models.ConceptPayload{ID: &id, Name: c.Name, Description: c.Description})
}

func (g *graph) addQuestion(q *models.AssignmentQuestion) {
	if _, ok := g.questionIndex[q.ID]; ok {
		return
	}
	id := q.ID
	g.questionIndex[q.ID] = len(g.questions)
	g.questions = append(g.questions, models.QuestionPayload{
		ID:         &id,
		Prompt:     q.Prompt,
		Position:   q.Position,
		ConceptIDs: []uint{},
	})
}

func (g *graph) link(questionID, conceptID uint) {
	l := models.QuestionConceptLink{QuestionID: questionID, ConceptID: conceptID}
	if g.linkSeen[l] {
		return
	}
	g.linkSeen[l] = true
	g.links = append(g.links, l)
	if i, ok := g.questionIndex[questionID]; ok {
		g.questions[i].ConceptIDs = append(g.questions[i].ConceptIDs, conceptID)
	}
}

func (g *graph) setAssignmentConcepts(ids []uint) {
	seen := make(map[uint]bool, len(ids))
	g.assignmentConcepts = g.assignmentConcepts[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		g.assignmentConcepts = append(g.assignmentConcepts, id)
	}
}

func (g *graph) review(approved bool) *models.StructureReview {
	r := &models.StructureReview{
		AssignmentID:       g.assignmentID,
		Concepts:           g.concepts,
		Questions:          g.questions,
		QuestionConcepts:   g.links,
		AssignmentConcepts: make([]models.AssignmentConceptLink, len(g.assignmentConcepts)),
		StructureApproved:  approved,
	}
	for i, id := range g.assignmentConcepts {
		r.AssignmentConcepts[i] = models.AssignmentConceptLink{ConceptID: id}
	}
	if r.Concepts == nil {
		r.Concepts = []models.ConceptPayload{}
	}
	if r.Questions == nil {
		r.Questions = []models.QuestionPayload{}
	}
	if r.QuestionConcepts == nil {
		r.QuestionConcepts = []models.QuestionConceptLink{}
	}
	return r
}

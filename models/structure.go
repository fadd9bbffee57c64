package models

// ConceptPayload is a concept as shown to and edited by reviewers
type ConceptPayload struct {
	ID          *uint   `json:"id,omitempty"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
}

// QuestionPayload is a question as shown to and edited by reviewers
type QuestionPayload struct {
	ID         *uint  `json:"id,omitempty"`
	Prompt     string `json:"prompt" binding:"required"`
	Position   *int   `json:"position,omitempty"`
	ConceptIDs []uint `json:"concept_ids"`
}

// QuestionConceptLink references question and concept database ids
type QuestionConceptLink struct {
	QuestionID uint `json:"question_id"`
	ConceptID  uint `json:"concept_id"`
}

// AssignmentConceptLink references a concept database id
type AssignmentConceptLink struct {
	ConceptID uint `json:"concept_id"`
}

// StructureReview is the full concept/question graph of one assignment
type StructureReview struct {
	AssignmentID       uint                    `json:"assignment_id"`
	Concepts           []ConceptPayload        `json:"concepts"`
	Questions          []QuestionPayload       `json:"questions"`
	QuestionConcepts   []QuestionConceptLink   `json:"question_concepts"`
	AssignmentConcepts []AssignmentConceptLink `json:"assignment_concepts"`
	StructureApproved  bool                    `json:"structure_approved"`
}

// StructureUpdate is the body of a human review submission
type StructureUpdate struct {
	Concepts           []ConceptPayload        `json:"concepts"`
	Questions          []QuestionPayload       `json:"questions"`
	QuestionConcepts   []QuestionConceptLink   `json:"question_concepts"`
	AssignmentConcepts []AssignmentConceptLink `json:"assignment_concepts"`
}

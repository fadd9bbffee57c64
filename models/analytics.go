package models

// ConceptScoreSummary is an averaged score for one concept
type ConceptScoreSummary struct {
	ConceptID    uint    `json:"concept_id"`
	ConceptName  string  `json:"concept_name"`
	AverageScore float64 `json:"average_score"`
}

// QuestionScoreSummary is an averaged score for one question
type QuestionScoreSummary struct {
	QuestionID     uint    `json:"question_id"`
	QuestionPrompt string  `json:"question_prompt"`
	AverageScore   float64 `json:"average_score"`
}

// StudentScoreSummary is an averaged score for one student
type StudentScoreSummary struct {
	StudentID    uint    `json:"student_id"`
	StudentName  string  `json:"student_name"`
	AverageScore float64 `json:"average_score"`
}

// WeaknessGroup lists students struggling with one concept
type WeaknessGroup struct {
	ConceptID    uint                  `json:"concept_id"`
	ConceptName  string                `json:"concept_name"`
	Students     []StudentScoreSummary `json:"students"`
	AverageScore float64               `json:"average_score"`
}

// AssignmentAnalytics summarizes understanding scores for an assignment
type AssignmentAnalytics struct {
	AssignmentID            uint                  `json:"assignment_id"`
	MostUnderstoodConcept   *ConceptScoreSummary  `json:"most_understood_concept"`
	LeastUnderstoodConcept  *ConceptScoreSummary  `json:"least_understood_concept"`
	MostUnderstoodQuestion  *QuestionScoreSummary `json:"most_understood_question"`
	LeastUnderstoodQuestion *QuestionScoreSummary `json:"least_understood_question"`
	StudentRankings         []StudentScoreSummary `json:"student_rankings"`
	WeaknessGroups          []WeaknessGroup       `json:"weakness_groups"`
}

package service

import (
	"context"
	"fmt"
	"sort"

	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
)

// WeaknessThreshold is the average concept score below which a student is
// grouped as struggling with that concept.
const WeaknessThreshold = 0.6

// AnalyticsService summarizes persisted understanding scores.
type AnalyticsService struct {
	assignments repository.AssignmentRepo
	scores      repository.ScoreRepo
	log         *logger.Logger
}

func NewAnalyticsService(assignments repository.AssignmentRepo, scores repository.ScoreRepo, log *logger.Logger) *AnalyticsService {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalyticsService{assignments: assignments, scores: scores, log: log.With("service", "AnalyticsService")}
}

// AssignmentAnalytics reports the best and worst understood concept and
// question, per-student rankings and concept weakness groups.
func (s *AnalyticsService) AssignmentAnalytics(ctx context.Context, assignmentID uint) (*models.AssignmentAnalytics, error) {
	if s.assignments == nil || s.scores == nil {
		return nil, fmt.Errorf("%w: repositories", ErrDependencyMissing)
	}
	if _, err := s.assignments.GetByID(ctx, nil, assignmentID); err != nil {
		return nil, err
	}

	concepts, err := s.scores.ConceptAverages(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("concept averages: %w", err)
	}
	questions, err := s.scores.QuestionAverages(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("question averages: %w", err)
	}
	students, err := s.scores.StudentAverages(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("student averages: %w", err)
	}
	pairs, err := s.scores.StudentConceptAverages(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("student concept averages: %w", err)
	}

	out := &models.AssignmentAnalytics{
		AssignmentID:    assignmentID,
		StudentRankings: students,
		WeaknessGroups:  weaknessGroups(pairs),
	}
	if out.StudentRankings == nil {
		out.StudentRankings = []models.StudentScoreSummary{}
	}
	if len(concepts) > 0 {
		hi, lo := 0, 0
		for i, c := range concepts {
			if c.AverageScore > concepts[hi].AverageScore {
				hi = i
			}
			if c.AverageScore < concepts[lo].AverageScore {
				lo = i
			}
		}
		out.MostUnderstoodConcept, out.LeastUnderstoodConcept = &concepts[hi], &concepts[lo]
	}
	if len(questions) > 0 {
		hi, lo := 0, 0
		for i, q := range questions {
			if q.AverageScore > questions[hi].AverageScore {
				hi = i
			}
			if q.AverageScore < questions[lo].AverageScore {
				lo = i
			}
		}
		out.MostUnderstoodQuestion, out.LeastUnderstoodQuestion = &questions[hi], &questions[lo]
	}
	return out, nil
}

// weaknessGroups groups students under each concept they average below
// WeaknessThreshold on. Larger groups come first, then lower averages.
func weaknessGroups(pairs []repository.StudentConceptAverage) []models.WeaknessGroup {
	index := make(map[uint]int)
	groups := []models.WeaknessGroup{}
	for _, p := range pairs {
		if p.AverageScore >= WeaknessThreshold {
			continue
		}
		i, ok := index[p.ConceptID]
		if !ok {
			i = len(groups)
			index[p.ConceptID] = i
			groups = append(groups, models.WeaknessGroup{ConceptID: p.ConceptID, ConceptName: p.ConceptName})
		}
		groups[i].Students = append(groups[i].Students, models.StudentScoreSummary{
			StudentID:    p.StudentID,
			StudentName:  p.StudentName,
			AverageScore: p.AverageScore,
		})
		groups[i].AverageScore += p.AverageScore
	}
	for i := range groups {
		groups[i].AverageScore /= float64(len(groups[i].Students))
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if len(groups[a].Students) != len(groups[b].Students) {
			return len(groups[a].Students) > len(groups[b].Students)
		}
		return groups[a].AverageScore < groups[b].AverageScore
	})
	return groups
}

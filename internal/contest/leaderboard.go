package contest

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/terra-clan/contest-engine/internal/models"
)

// Leaderboard ranks evaluated submissions by average total, highest first.
// Equal averages keep submission order.
func (s *Service) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	subs, err := s.repo.ListSubmissions(ctx, models.SubmissionFilter{Status: models.StatusEvaluated})
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluated submissions: %w", err)
	}

	type ranked struct {
		entry models.LeaderboardEntry
		avg   float64
	}

	rows := make([]ranked, 0, len(subs))
	for _, sub := range subs {
		evals, err := s.repo.ListEvaluations(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list evaluations for %s: %w", sub.ID, err)
		}

		views, err := s.evaluationViews(ctx, evals)
		if err != nil {
			return nil, err
		}

		entry := models.LeaderboardEntry{
			SubmissionID:    sub.ID,
			TeamID:          sub.TeamID,
			Topic:           sub.Topic,
			EvaluationCount: len(evals),
			Evaluations:     views,
		}

		team, err := s.repo.GetTeam(ctx, sub.TeamID)
		switch {
		case err == nil:
			entry.TeamName = team.Name
		case !isNotFound(err):
			return nil, fmt.Errorf("failed to get team %s: %w", sub.TeamID, err)
		}

		avg := average(evals)
		entry.AvgScore = round2(avg)
		rows = append(rows, ranked{entry: entry, avg: avg})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].avg > rows[j].avg
	})

	board := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		board[i] = r.entry
	}
	return board, nil
}

func average(evals []*models.Evaluation) float64 {
	if len(evals) == 0 {
		return 0
	}
	var sum float64
	for _, e := range evals {
		sum += e.TotalScore
	}
	return sum / float64(len(evals))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

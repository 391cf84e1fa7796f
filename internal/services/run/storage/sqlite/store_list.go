package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
)

const (
	defaultListPageSize      = 50
	maxListPageSize          = 200
	defaultCompareLimit      = 50
	defaultProjectionPerUser = 100
)

func runColumns(includeState bool) string {
	columns := `id, user_id, survey_id, passes, created_at,
	        coords2d_x, coords2d_y, coords3d_v, coords3d_a, coords3d_d,
	        stability, scores_json, notes`
	if includeState {
		columns += ", final_state_json"
	}
	return columns
}

// ListRuns returns a filtered page of runs in reverse chronological order.
func (s *Store) ListRuns(ctx context.Context, query storage.ListRunsQuery) (storage.RunList, error) {
	if err := ctx.Err(); err != nil {
		return storage.RunList{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RunList{}, fmt.Errorf("storage is not configured")
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = defaultListPageSize
	}
	if query.PageSize > maxListPageSize {
		query.PageSize = maxListPageSize
	}

	plan := buildListRunsSQLPlan(query)

	listQuery := fmt.Sprintf(
		"SELECT %s FROM runs %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		runColumns(query.IncludeState),
		plan.whereClause,
	)
	listParams := append(append([]any{}, plan.params...), query.PageSize, (query.Page-1)*query.PageSize)

	rows, err := s.sqlDB.QueryContext(ctx, listQuery, listParams...)
	if err != nil {
		return storage.RunList{}, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	list := storage.RunList{Runs: make([]storage.Run, 0, query.PageSize)}
	for rows.Next() {
		run, err := scanRun(rows, query.IncludeState)
		if err != nil {
			return storage.RunList{}, fmt.Errorf("scan run: %w", err)
		}
		list.Runs = append(list.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return storage.RunList{}, fmt.Errorf("iterate runs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM runs %s", plan.whereClause)
	if err := s.sqlDB.QueryRowContext(ctx, countQuery, plan.params...).Scan(&list.Total); err != nil {
		return storage.RunList{}, fmt.Errorf("count runs: %w", err)
	}
	return list, nil
}

// CompareRuns returns the most recent runs per user, keyed by user ID.
// Users with no persisted runs are absent from the result.
func (s *Store) CompareRuns(ctx context.Context, userIDs []string, limitPerUser int, includeState bool) (map[string][]storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	trimmed := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if userID = strings.TrimSpace(userID); userID != "" {
			trimmed = append(trimmed, userID)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("at least one user id is required")
	}
	if limitPerUser <= 0 {
		limitPerUser = defaultCompareLimit
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(trimmed)), ", ")
	params := make([]any, 0, len(trimmed)+1)
	for _, userID := range trimmed {
		params = append(params, userID)
	}
	params = append(params, limitPerUser)

	compareQuery := fmt.Sprintf(
		`SELECT %s FROM (
		   SELECT %s,
		          ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS row_rank
		     FROM runs
		    WHERE user_id IN (%s)
		 ) WHERE row_rank <= ?
		 ORDER BY user_id ASC, created_at DESC, id DESC`,
		runColumns(includeState),
		runColumns(includeState),
		placeholders,
	)

	rows, err := s.sqlDB.QueryContext(ctx, compareQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}
	defer rows.Close()

	byUser := make(map[string][]storage.Run, len(trimmed))
	for rows.Next() {
		run, err := scanRun(rows, includeState)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		byUser[run.UserID] = append(byUser[run.UserID], run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return byUser, nil
}

// ListRunsForProjection returns trait-scored runs for dimensionality reduction.
// LimitPerUser caps how many recent runs each user contributes.
func (s *Store) ListRunsForProjection(ctx context.Context, query storage.ProjectionQuery) ([]storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if query.LimitPerUser <= 0 {
		query.LimitPerUser = defaultProjectionPerUser
	}

	conditions := make([]string, 0, 4)
	params := make([]any, 0, 8)

	trimmed := make([]string, 0, len(query.UserIDs))
	for _, userID := range query.UserIDs {
		if userID = strings.TrimSpace(userID); userID != "" {
			trimmed = append(trimmed, userID)
		}
	}
	if len(trimmed) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(trimmed)), ", ")
		conditions = append(conditions, "user_id IN ("+placeholders+")")
		for _, userID := range trimmed {
			params = append(params, userID)
		}
	}
	if surveyID := strings.TrimSpace(query.SurveyID); surveyID != "" {
		conditions = append(conditions, "survey_id = ?")
		params = append(params, surveyID)
	}
	if query.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		params = append(params, toMillis(*query.Since))
	}
	if query.Until != nil {
		conditions = append(conditions, "created_at <= ?")
		params = append(params, toMillis(*query.Until))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	projectionQuery := fmt.Sprintf(
		`SELECT %s FROM (
		   SELECT %s,
		          ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS row_rank
		     FROM runs %s
		 ) WHERE row_rank <= ?
		 ORDER BY user_id ASC, created_at DESC, id DESC`,
		runColumns(false),
		runColumns(false),
		whereClause,
	)
	params = append(params, query.LimitPerUser)

	rows, err := s.sqlDB.QueryContext(ctx, projectionQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("list runs for projection: %w", err)
	}
	defer rows.Close()

	runs := make([]storage.Run, 0, 16)
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRunStats returns aggregate counters over the whole run table.
func (s *Store) GetRunStats(ctx context.Context) (storage.RunStats, error) {
	if err := ctx.Err(); err != nil {
		return storage.RunStats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RunStats{}, fmt.Errorf("storage is not configured")
	}

	var (
		firstRunAt    sql.NullInt64
		lastRunAt     sql.NullInt64
		meanStability sql.NullFloat64
	)
	stats := storage.RunStats{RunsByUser: make(map[string]int)}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), MIN(created_at), MAX(created_at), AVG(stability)
		   FROM runs`,
	)
	if err := row.Scan(&stats.TotalRuns, &stats.UniqueUsers, &firstRunAt, &lastRunAt, &meanStability); err != nil {
		return storage.RunStats{}, fmt.Errorf("aggregate run stats: %w", err)
	}
	if firstRunAt.Valid {
		value := fromMillis(firstRunAt.Int64)
		stats.FirstRunAt = &value
	}
	if lastRunAt.Valid {
		value := fromMillis(lastRunAt.Int64)
		stats.LastRunAt = &value
	}
	if meanStability.Valid {
		value := meanStability.Float64
		stats.MeanStability = &value
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT user_id, COUNT(*)
		   FROM runs
		  GROUP BY user_id
		  ORDER BY COUNT(*) DESC, user_id ASC`,
	)
	if err != nil {
		return storage.RunStats{}, fmt.Errorf("count runs by user: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return storage.RunStats{}, fmt.Errorf("scan run count: %w", err)
		}
		stats.RunsByUser[userID] = count
	}
	if err := rows.Err(); err != nil {
		return storage.RunStats{}, fmt.Errorf("iterate run counts: %w", err)
	}
	return stats, nil
}

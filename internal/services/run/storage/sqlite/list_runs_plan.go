package sqlite

import (
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
)

type listRunsSQLPlan struct {
	whereClause string
	params      []any
}

func buildListRunsSQLPlan(query storage.ListRunsQuery) listRunsSQLPlan {
	conditions := make([]string, 0, 5)
	params := make([]any, 0, 5)

	if userID := strings.TrimSpace(query.UserID); userID != "" {
		conditions = append(conditions, "user_id = ?")
		params = append(params, userID)
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
	if clause := strings.TrimSpace(query.Where); clause != "" {
		conditions = append(conditions, "("+clause+")")
		params = append(params, query.WhereParams...)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return listRunsSQLPlan{
		whereClause: whereClause,
		params:      params,
	}
}

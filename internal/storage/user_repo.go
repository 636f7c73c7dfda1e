package storage

import (
	"context"
	"fmt"
	"strings"

	"resumeflow/internal/profile"
)

// onboardingColumns maps onboarding profile keys onto the users table.
var onboardingColumns = map[string]string{
	"current_title":      "title",
	"city":               "city",
	"country":            "country",
	"employment_history": "experience",
	"education":          "education",
	"skills":             "skills",
}

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// UpsertOnboardingProfile writes the onboarding fields into the user's row,
// touching only the populated columns.
func (r *UserRepo) UpsertOnboardingProfile(ctx context.Context, ownerID string, values []profile.Value) (string, error) {
	cols, args, err := columnArgs(values, onboardingColumns)
	if err != nil {
		return "", err
	}
	names := []string{"id"}
	params := []string{"$1"}
	updates := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		names = append(names, c.ident)
		params = append(params, placeholder(i+2, c.kind))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c.ident, c.ident))
	}
	updates = append(updates, "updated_at = NOW()")

	sql := fmt.Sprintf(`
INSERT INTO users (%s)
VALUES (%s)
ON CONFLICT (id)
DO UPDATE SET %s
RETURNING id`, strings.Join(names, ", "), strings.Join(params, ", "), strings.Join(updates, ", "))

	var id string
	if err := r.db.Pool.QueryRow(ctx, sql, append([]any{ownerID}, args...)...).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert onboarding profile: %w", err)
	}
	return id, nil
}

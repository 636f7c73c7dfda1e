package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resumeflow/internal/profile"

	"github.com/jackc/pgx/v5"
)

type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// StoredProfile is a profile row with its populated columns only.
type StoredProfile struct {
	ProfileID string         `json:"profile_id"`
	OwnerID   string         `json:"owner_id"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (r *ProfileRepo) FindProfileIDByOwner(ctx context.Context, ownerID string) (string, bool, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `SELECT profile_id::text FROM profiles WHERE owner_id=$1`, ownerID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find profile by owner: %w", err)
	}
	return id, true, nil
}

// UpdateProfile sets only the given columns.
func (r *ProfileRepo) UpdateProfile(ctx context.Context, profileID string, values []profile.Value) error {
	if len(values) == 0 {
		return nil
	}
	cols, args, err := columnArgs(values, nil)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = %s", c.ident, placeholder(i+2, c.kind)))
	}
	sets = append(sets, "updated_at = NOW()")
	sql := fmt.Sprintf(`UPDATE profiles SET %s WHERE profile_id = $1`, strings.Join(sets, ", "))
	tag, err := r.db.Pool.Exec(ctx, sql, append([]any{profileID}, args...)...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update profile %s: no such row", profileID)
	}
	return nil
}

// InsertProfile creates the owner's profile. display_name falls back to
// placeholderName on insert only; on conflict the existing row is updated
// with the same sparse column list, so concurrent first runs converge.
func (r *ProfileRepo) InsertProfile(ctx context.Context, ownerID string, values []profile.Value, placeholderName string) (string, error) {
	hasName := false
	for _, v := range values {
		if v.Key == "display_name" {
			hasName = true
		}
	}
	if !hasName {
		values = append([]profile.Value{{Key: "display_name", Kind: profile.KindString, Value: placeholderName}}, values...)
	}
	cols, args, err := columnArgs(values, nil)
	if err != nil {
		return "", err
	}

	names := []string{"owner_id"}
	params := []string{"$1"}
	updates := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		names = append(names, c.ident)
		params = append(params, placeholder(i+2, c.kind))
		if c.key == "display_name" && !hasName {
			updates = append(updates, "display_name = COALESCE(profiles.display_name, EXCLUDED.display_name)")
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c.ident, c.ident))
	}
	updates = append(updates, "updated_at = NOW()")

	sql := fmt.Sprintf(`
INSERT INTO profiles (%s)
VALUES (%s)
ON CONFLICT (owner_id)
DO UPDATE SET %s
RETURNING profile_id::text`, strings.Join(names, ", "), strings.Join(params, ", "), strings.Join(updates, ", "))

	var id string
	if err := r.db.Pool.QueryRow(ctx, sql, append([]any{ownerID}, args...)...).Scan(&id); err != nil {
		return "", fmt.Errorf("insert profile: %w", err)
	}
	return id, nil
}

// GetProfileByOwner loads the owner's profile with null columns dropped.
func (r *ProfileRepo) GetProfileByOwner(ctx context.Context, ownerID string) (StoredProfile, error) {
	var (
		p   StoredProfile
		raw []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT profile_id::text, owner_id, updated_at,
       jsonb_strip_nulls(to_jsonb(p) - 'profile_id' - 'owner_id' - 'created_at' - 'updated_at')
FROM profiles p
WHERE owner_id=$1`, ownerID).Scan(&p.ProfileID, &p.OwnerID, &p.UpdatedAt, &raw)
	if err != nil {
		return StoredProfile{}, fmt.Errorf("get profile by owner: %w", err)
	}
	if err := json.Unmarshal(raw, &p.Fields); err != nil {
		return StoredProfile{}, fmt.Errorf("decode profile row: %w", err)
	}
	return p, nil
}

type column struct {
	key   string
	ident string
	kind  profile.Kind
}

// columnArgs turns present values into sanitized column identifiers and
// bind arguments. rename maps a profile key to a different column name.
func columnArgs(values []profile.Value, rename map[string]string) ([]column, []any, error) {
	cols := make([]column, 0, len(values))
	args := make([]any, 0, len(values))
	for _, v := range values {
		if !profile.IsKnownKey(v.Key) {
			return nil, nil, fmt.Errorf("unknown profile field %q", v.Key)
		}
		name := v.Key
		if rename != nil {
			mapped, ok := rename[v.Key]
			if !ok {
				return nil, nil, fmt.Errorf("field %q has no column", v.Key)
			}
			name = mapped
		}
		arg := v.Value
		if v.Kind == profile.KindObjectList {
			b, err := json.Marshal(v.Value)
			if err != nil {
				return nil, nil, fmt.Errorf("encode %s: %w", v.Key, err)
			}
			arg = string(b)
		}
		cols = append(cols, column{key: v.Key, ident: pgx.Identifier{name}.Sanitize(), kind: v.Kind})
		args = append(args, arg)
	}
	return cols, args, nil
}

func placeholder(n int, kind profile.Kind) string {
	switch kind {
	case profile.KindObjectList:
		return fmt.Sprintf("$%d::jsonb", n)
	case profile.KindStringList:
		return fmt.Sprintf("$%d::text[]", n)
	default:
		return fmt.Sprintf("$%d", n)
	}
}

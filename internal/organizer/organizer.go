// Package organizer resolves the locally known current user whose id becomes
// a new meeting's organizer.
package organizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// User is a resolved session user. It satisfies booking.SessionUser.
type User struct {
	ID string `json:"_id"`
}

// UserID returns the id, reporting false when none is known.
func (u User) UserID() (string, bool) {
	id := strings.TrimSpace(u.ID)
	return id, id != ""
}

// Anonymous is the user when nothing is cached.
var Anonymous = User{}

// LoadFile reads a cached user record of the form {"_id": "..."}. A missing
// file is not an error and yields Anonymous.
func LoadFile(path string) (User, error) {
	if strings.TrimSpace(path) == "" {
		return Anonymous, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, fmt.Errorf("organizer: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Anonymous, nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return Anonymous, fmt.Errorf("organizer: parse %s: %w", path, err)
	}
	return u, nil
}

type ctxKey string

const userKey ctxKey = "consult.organizer_id"

// WithUserID stores the organizer id in context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// FromContext returns the organizer carried by ctx, or Anonymous.
func FromContext(ctx context.Context) User {
	val := ctx.Value(userKey)
	if val == nil {
		return Anonymous
	}
	id, _ := val.(string)
	return User{ID: id}
}

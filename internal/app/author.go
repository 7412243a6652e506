package app

import (
	"context"
	"errors"
	"fmt"

	"testmaker-service/internal/domain"
)

// ResolveDefaultAuthor returns the id new quizzes are attributed to. A configured id wins and
// must exist; otherwise the user named userName is looked up once.
func ResolveDefaultAuthor(ctx context.Context, users UserRepository, id, userName string) (string, error) {
	if id != "" {
		if _, err := users.GetUser(ctx, id); err != nil {
			return "", fmt.Errorf("default author: %w", err)
		}
		return id, nil
	}
	if userName == "" {
		userName = AdminUserName
	}
	user, err := users.GetUserByName(ctx, userName)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("default author %q not found, run the seed command or set quiz.default_author_id: %w", userName, err)
	}
	if err != nil {
		return "", fmt.Errorf("default author: %w", err)
	}
	return user.ID, nil
}

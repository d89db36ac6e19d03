package repository

import (
	"context"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// FindUsers devolve os usuários encontrados indexados por id.
func (r *Store) FindUsers(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.User
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

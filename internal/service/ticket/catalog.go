package ticket

import (
	"context"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/models"
)

// CatalogItem 可预订项目
type CatalogItem struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price int64   `json:"price"`
	Place *string `json:"place,omitempty"`
}

// CatalogResponse 开放中的活动与游戏
type CatalogResponse struct {
	Events []*CatalogItem `json:"events"`
	Games  []*CatalogItem `json:"games"`
}

// Catalog 列出可预订的活动与游戏
func (s *Service) Catalog(ctx context.Context) (*CatalogResponse, error) {
	events, err := s.catalogRepo.ListOpenEvents(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	games, err := s.catalogRepo.ListOpenGames(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	resp := &CatalogResponse{
		Events: make([]*CatalogItem, 0, len(events)),
		Games:  make([]*CatalogItem, 0, len(games)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, eventItem(e))
	}
	for _, g := range games {
		resp.Games = append(resp.Games, &CatalogItem{ID: g.ID, Name: g.Name, Price: g.Price, Place: g.Zone})
	}
	return resp, nil
}

func eventItem(e *models.Event) *CatalogItem {
	return &CatalogItem{ID: e.ID, Name: e.Name, Price: e.Price, Place: e.Location}
}

// Package news holds school news articles and notices.
package news

import (
	"context"
	"strings"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
)

// EntityType is the collection articles are stored in.
const EntityType = "news"

type Article struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Author      string `json:"author,omitempty"`
	Published   bool   `json:"published"`
	PublishedAt string `json:"publishedAt,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type NewArticle struct {
	Title  string `json:"title" validate:"notblank"`
	Body   string `json:"body" validate:"notblank"`
	Author string `json:"author"`
}

type publishPatch struct {
	Published   bool   `json:"published"`
	PublishedAt string `json:"publishedAt"`
}

type Service struct {
	col entity.Collection[Article]
	log sms.Logger
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col: entity.NewCollection[Article](store, EntityType),
		log: logging.WithPrefix(log, "[news]"),
	}
}

// Create saves a new unpublished article.
func (s *Service) Create(ctx context.Context, na NewArticle) (Article, error) {
	if err := validate.Struct(na); err != nil {
		return Article{}, err
	}

	return s.col.Create(ctx, Article{
		Title:  strings.TrimSpace(na.Title),
		Body:   na.Body,
		Author: strings.TrimSpace(na.Author),
	})
}

// Publish makes an article visible. Publishing an already published article
// keeps its original publication time.
func (s *Service) Publish(ctx context.Context, id string) (Article, error) {
	a, err := s.col.Get(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if a.Published {
		return a, nil
	}

	a, err = s.col.Update(ctx, id, publishPatch{
		Published:   true,
		PublishedAt: entity.FormatTime(s.col.Store().Now()),
	})
	if err != nil {
		return Article{}, err
	}

	s.log.Infof("published %q", a.Title)
	return a, nil
}

// Unpublish takes an article down again.
func (s *Service) Unpublish(ctx context.Context, id string) (Article, error) {
	return s.col.Update(ctx, id, entity.Record{"published": false, "publishedAt": nil})
}

// Published returns the published articles, newest first.
func (s *Service) Published(ctx context.Context) ([]Article, error) {
	found, err := s.col.Find(ctx, entity.Where{"published": entity.Equals(true)})
	if err != nil {
		return nil, err
	}
	return jelsort.By(found, jelsort.Desc(func(a Article) int64 { return unixMilli(a.PublishedAt) })), nil
}

// All returns every article including drafts, newest first.
func (s *Service) All(ctx context.Context) ([]Article, error) {
	all, err := s.col.All(ctx)
	if err != nil {
		return nil, err
	}
	return jelsort.By(all, jelsort.Desc(func(a Article) int64 { return unixMilli(a.CreatedAt) })), nil
}

func (s *Service) Get(ctx context.Context, id string) (Article, error) {
	return s.col.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func unixMilli(ts string) int64 {
	t, err := entity.ParseTime(ts)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

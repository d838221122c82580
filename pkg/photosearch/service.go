package photosearch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/acl"
)

var searchTracer = otel.Tracer("photark/photosearch/service")

// AccessResolver yields the caller's effective access snapshot.
type AccessResolver interface {
	Resolve(ctx context.Context, id accessctl.Identity) (accessctl.EffectiveAccess, error)
}

// ServiceOptions tunes search behavior.
type ServiceOptions struct {
	// MaxPageSize caps a single result page. Defaults to MaxPageSize.
	MaxPageSize int
}

// Service executes ACL-scoped photo searches against the catalog.
type Service struct {
	db          *sql.DB
	resolver    AccessResolver
	maxPageSize int
	now         func() time.Time
}

// NewService creates a search service on top of the catalog database.
func NewService(db *sql.DB, resolver AccessResolver, opts ServiceOptions) *Service {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	return &Service{
		db:          db,
		resolver:    resolver,
		maxPageSize: opts.MaxPageSize,
		now:         time.Now,
	}
}

// PhotoItem is one row of a search result page.
type PhotoItem struct {
	ID           int64      `json:"id"`
	StorageID    int64      `json:"storage_id"`
	RelativePath string     `json:"relative_path"`
	TakenDate    *time.Time `json:"taken_date,omitempty"`
	IsBW         bool       `json:"is_bw"`
	IsAdult      bool       `json:"is_adult"`
	IsRacy       bool       `json:"is_racy"`
}

// Page is a search result page. TotalCount counts every match of the same
// predicate, not just the rows on this page.
type Page struct {
	Items      []PhotoItem `json:"items"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}

// Search resolves the caller's access, intersects it with the filter, and
// returns one page of matching photos plus the total match count.
func (s *Service) Search(ctx context.Context, id accessctl.Identity, filter SearchFilter) (*Page, error) {
	ctx, span := searchTracer.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("user_id", id.UserID.String()),
			attribute.Bool("is_admin", id.IsAdmin),
		),
	)
	defer span.End()

	filter = filter.normalizeWithCap(s.maxPageSize)
	span.SetAttributes(
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	)

	access, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve access")
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}

	pred, err := searchPredicate(filter, access, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build predicate")
		return nil, err
	}

	page := &Page{
		Items:    []PhotoItem{},
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	// A predicate known to match nothing needs no round trip.
	if _, none := pred.(acl.MatchNone); none {
		span.SetAttributes(attribute.Int("total_count", 0))
		return page, nil
	}

	countSQL, countArgs := buildCountQuery(pred)
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&page.TotalCount); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count photos")
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}
	span.SetAttributes(attribute.Int("total_count", page.TotalCount))
	if page.TotalCount == 0 {
		return page, nil
	}

	pageSQL, pageArgs := buildPageQuery(pred, filter.Page, filter.PageSize)
	rows, err := s.db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query photos")
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item PhotoItem
		var taken sql.NullTime
		if err := rows.Scan(
			&item.ID,
			&item.StorageID,
			&item.RelativePath,
			&taken,
			&item.IsBW,
			&item.IsAdult,
			&item.IsRacy,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan photo row: %w", err)
		}
		if taken.Valid {
			t := taken.Time
			item.TakenDate = &t
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error iterating photos")
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(page.Items)))
	return page, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/observability"
	"github.com/noah-isme/school-points-api/internal/repository"
)

const weeklyListCacheKey = "reports:weekly:list"

// ReportInvalidator drops derived report data after the ledger changes.
type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

// ReportService derives weekly rollups from the evaluation ledger.
type ReportService interface {
	ReportInvalidator
	WeeklyList(ctx context.Context, viewer *Viewer) ([]dto.WeeklyReportSummary, error)
	WeeklyDetail(ctx context.Context, viewer *Viewer, fridayDate int64) ([]dto.WeeklyReportStudent, error)
	ExportWeekly(ctx context.Context, viewer *Viewer, fridayDate int64) ([]byte, string, error)
}

// ReportServiceOptions configures week math and caching.
type ReportServiceOptions struct {
	Location *time.Location
	CacheTTL time.Duration
}

type reportService struct {
	store    repository.Store
	cache    *redis.Client
	cacheTTL time.Duration
	location *time.Location
	logger   zerolog.Logger
}

// NewReportService builds the weekly report aggregator. cache may be nil.
func NewReportService(store repository.Store, cache *redis.Client, opts ReportServiceOptions, logger zerolog.Logger) ReportService {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &reportService{
		store:    store,
		cache:    cache,
		cacheTTL: ttl,
		location: locationOrLocal(opts.Location),
		logger:   logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *reportService) WeeklyList(ctx context.Context, viewer *Viewer) ([]dto.WeeklyReportSummary, error) {
	if !viewer.Authenticated() {
		return []dto.WeeklyReportSummary{}, nil
	}

	tracer := otel.Tracer("github.com/noah-isme/school-points-api/internal/service/report")
	ctx, span := tracer.Start(ctx, "reports.weekly_list")
	span.SetAttributes(attribute.String("reports.cache_key", weeklyListCacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, weeklyListCacheKey).Result()
		if err == nil {
			var summaries []dto.WeeklyReportSummary
			if unmarshalErr := json.Unmarshal([]byte(cached), &summaries); unmarshalErr == nil {
				observability.ReportCacheRequests().WithLabelValues("hit").Inc()
				span.SetAttributes(attribute.Bool("reports.cache_hit", true))
				return summaries, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			s.logger.Warn().Err(err).Msg("failed to read weekly report cache")
		}
		observability.ReportCacheRequests().WithLabelValues("miss").Inc()
	}

	evaluations, err := s.store.Evaluations().ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_evaluations_failed")
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	summaries := s.bucketize(evaluations)
	span.SetAttributes(
		attribute.Int("reports.evaluations", len(evaluations)),
		attribute.Int("reports.weeks", len(summaries)),
	)

	if s.cache != nil {
		payload, err := json.Marshal(summaries)
		if err == nil {
			if err := s.cache.Set(ctx, weeklyListCacheKey, payload, s.cacheTTL).Err(); err != nil {
				span.RecordError(err)
				s.logger.Warn().Err(err).Msg("failed to store weekly report cache")
			}
		}
	}

	return summaries, nil
}

func (s *reportService) bucketize(evaluations []models.Evaluation) []dto.WeeklyReportSummary {
	type bucket struct {
		friday   time.Time
		students map[string]struct{}
	}

	buckets := map[int64]*bucket{}
	for _, evaluation := range evaluations {
		friday := WeekEndingFriday(evaluation.Timestamp, s.location)
		key := friday.UnixMilli()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{friday: friday, students: map[string]struct{}{}}
			buckets[key] = b
		}
		b.students[evaluation.StudentID] = struct{}{}
	}

	summaries := make([]dto.WeeklyReportSummary, 0, len(buckets))
	for key, b := range buckets {
		summaries = append(summaries, dto.WeeklyReportSummary{
			WeekNumber:    WeekNumber(b.friday),
			FridayDate:    key,
			FormattedDate: FormatWeekRange(b.friday),
			StudentCount:  len(b.students),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].FridayDate > summaries[j].FridayDate
	})
	return summaries
}

func (s *reportService) WeeklyDetail(ctx context.Context, viewer *Viewer, fridayDate int64) ([]dto.WeeklyReportStudent, error) {
	if !viewer.Authenticated() {
		return []dto.WeeklyReportStudent{}, nil
	}
	// A zero bound disables the repository filter, so the window would lose its start.
	if fridayDate <= 0 {
		return nil, ErrInvalidReportDate
	}

	tracer := otel.Tracer("github.com/noah-isme/school-points-api/internal/service/report")
	ctx, span := tracer.Start(ctx, "reports.weekly_detail")
	span.SetAttributes(attribute.Int64("reports.friday", fridayDate))
	defer span.End()

	after, before := weekWindow(fridayDate)
	evaluations, err := s.store.Evaluations().List(ctx, repository.EvaluationFilter{After: after, Before: before})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_evaluations_failed")
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	rows := map[string]*dto.WeeklyReportStudent{}
	studentIDs := make([]string, 0)
	for _, evaluation := range evaluations {
		row, ok := rows[evaluation.StudentID]
		if !ok {
			row = &dto.WeeklyReportStudent{
				StudentID:        evaluation.StudentID,
				PointsByCategory: map[string]int{},
			}
			rows[evaluation.StudentID] = row
			studentIDs = append(studentIDs, evaluation.StudentID)
		}
		row.PointsByCategory[evaluation.Category] += evaluation.Value
		row.TotalPoints += evaluation.Value
	}

	students, err := s.store.Students().ListByIDs(ctx, studentIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_students_failed")
		return nil, fmt.Errorf("list students: %w", err)
	}

	result := make([]dto.WeeklyReportStudent, 0, len(students))
	for _, student := range students {
		row := rows[student.ID]
		row.StudentCode = student.StudentID
		row.EnglishName = student.EnglishName
		row.ChineseName = student.ChineseName
		row.Grade = student.Grade
		result = append(result, *row)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].EnglishName) < strings.ToLower(result[j].EnglishName)
	})

	span.SetAttributes(attribute.Int("reports.students", len(result)))
	return result, nil
}

func (s *reportService) ExportWeekly(ctx context.Context, viewer *Viewer, fridayDate int64) ([]byte, string, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, "", err
	}
	if fridayDate <= 0 {
		return nil, "", ErrInvalidReportDate
	}

	rows, err := s.WeeklyDetail(ctx, viewer, fridayDate)
	if err != nil {
		return nil, "", err
	}

	friday := time.UnixMilli(fridayDate).In(s.location)
	payload, err := renderWeeklyWorkbook(friday, rows)
	if err != nil {
		s.logger.Error().Err(err).Int64("friday", fridayDate).Msg("failed to render weekly report workbook")
		return nil, "", err
	}

	filename := fmt.Sprintf("weekly-report-%s.xlsx", friday.Format("2006-01-02"))
	return payload, filename, nil
}

func (s *reportService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, weeklyListCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate weekly report cache")
	}
}

package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
)

func utcMillis(year int, month time.Month, day, hour int) int64 {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC).UnixMilli()
}

func TestWeekEndingFriday(t *testing.T) {
	friday := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)

	cases := map[string]int64{
		"monday":         utcMillis(2024, time.March, 4, 0),
		"wednesday":      utcMillis(2024, time.March, 6, 15),
		"friday evening": utcMillis(2024, time.March, 8, 23),
		"sunday":         utcMillis(2024, time.March, 10, 12),
	}
	for name, ts := range cases {
		require.True(t, friday.Equal(WeekEndingFriday(ts, time.UTC)), name)
	}

	next := WeekEndingFriday(utcMillis(2024, time.March, 11, 9), time.UTC)
	require.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), next)

	crossMonth := WeekEndingFriday(utcMillis(2024, time.March, 31, 9), time.UTC)
	require.Equal(t, time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC), crossMonth)
}

func TestWeekNumberAndFormat(t *testing.T) {
	friday := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 10, WeekNumber(friday))
	require.Equal(t, "Mar 4 - Mar 8, 2024", FormatWeekRange(friday))

	first := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 1, WeekNumber(first))
	require.Equal(t, "Jan 1 - Jan 5, 2024", FormatWeekRange(first))
}

func TestReportServiceWeeklyListBucketsAndCaches(t *testing.T) {
	f := newFixture(t)
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	svc := NewReportService(f.store, client, ReportServiceOptions{Location: time.UTC, CacheTTL: time.Minute}, testLogger())
	ctx := context.Background()

	alice := f.seedStudent(t, "S001", "Alice", 8, models.StudentStatusEnrolled)
	bella := f.seedStudent(t, "S002", "Bella", 8, models.StudentStatusEnrolled)
	f.seedEvaluation(t, alice.ID, f.teacher.ID, "Behaviour", 1, utcMillis(2024, time.March, 4, 9))
	f.seedEvaluation(t, alice.ID, f.teacher.ID, "Behaviour", 1, utcMillis(2024, time.March, 6, 9))
	f.seedEvaluation(t, bella.ID, f.teacher.ID, "Homework", 2, utcMillis(2024, time.March, 7, 9))
	f.seedEvaluation(t, bella.ID, f.teacher.ID, "Homework", 2, utcMillis(2024, time.March, 12, 9))

	summaries, err := svc.WeeklyList(ctx, f.teacher)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.Equal(t, utcMillis(2024, time.March, 15, 0), summaries[0].FridayDate)
	require.Equal(t, 1, summaries[0].StudentCount)
	require.Equal(t, utcMillis(2024, time.March, 8, 0), summaries[1].FridayDate)
	require.Equal(t, 2, summaries[1].StudentCount)
	require.Equal(t, 10, summaries[1].WeekNumber)
	require.Equal(t, "Mar 4 - Mar 8, 2024", summaries[1].FormattedDate)
	require.True(t, server.Exists(weeklyListCacheKey))

	f.seedEvaluation(t, alice.ID, f.teacher.ID, "Behaviour", 1, utcMillis(2024, time.April, 2, 9))
	cached, err := svc.WeeklyList(ctx, f.teacher)
	require.NoError(t, err)
	require.Len(t, cached, 2)

	svc.Invalidate(ctx)
	require.False(t, server.Exists(weeklyListCacheKey))

	fresh, err := svc.WeeklyList(ctx, f.teacher)
	require.NoError(t, err)
	require.Len(t, fresh, 3)

	anonymous, err := svc.WeeklyList(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, anonymous)
}

func TestReportServiceWeeklyDetailSumsAndWindow(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(f.store, nil, ReportServiceOptions{Location: time.UTC}, testLogger())
	ctx := context.Background()

	friday := utcMillis(2024, time.March, 8, 0)
	zoe := f.seedStudent(t, "S003", "zoe", 9, models.StudentStatusEnrolled)
	amy := f.seedStudent(t, "S001", "Amy", 8, models.StudentStatusEnrolled)
	idle := f.seedStudent(t, "S002", "Idle", 8, models.StudentStatusEnrolled)

	f.seedEvaluation(t, amy.ID, f.teacher.ID, "Behaviour", 2, friday+1)
	f.seedEvaluation(t, amy.ID, f.teacher.ID, "Behaviour", 1, friday+int64(time.Hour/time.Millisecond))
	f.seedEvaluation(t, amy.ID, f.teacher.ID, "Homework", -1, friday+int64(48*time.Hour/time.Millisecond))
	f.seedEvaluation(t, zoe.ID, f.teacher.ID, "Homework", 5, friday+int64(72*time.Hour/time.Millisecond))
	// The Friday instant itself sits outside the window.
	f.seedEvaluation(t, idle.ID, f.teacher.ID, "Behaviour", 7, friday)
	f.seedEvaluation(t, idle.ID, f.teacher.ID, "Behaviour", 7, friday+weekMillis-1)

	rows, err := svc.WeeklyDetail(ctx, f.teacher, friday)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "Amy", rows[0].EnglishName)
	require.Equal(t, 3, rows[0].PointsByCategory["Behaviour"])
	require.Equal(t, -1, rows[0].PointsByCategory["Homework"])
	require.Equal(t, 2, rows[0].TotalPoints)
	require.Equal(t, "S001", rows[0].StudentCode)

	require.Equal(t, "zoe", rows[1].EnglishName)
	require.Equal(t, 5, rows[1].TotalPoints)

	_, err = svc.WeeklyDetail(ctx, f.teacher, 0)
	require.ErrorIs(t, err, ErrInvalidReportDate)
	_, err = svc.WeeklyDetail(ctx, f.teacher, -weekMillis)
	require.ErrorIs(t, err, ErrInvalidReportDate)

	anonymous, err := svc.WeeklyDetail(ctx, nil, 0)
	require.NoError(t, err)
	require.Empty(t, anonymous)
}

func TestReportServiceExportWeekly(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(f.store, nil, ReportServiceOptions{Location: time.UTC}, testLogger())
	ctx := context.Background()

	friday := utcMillis(2024, time.March, 8, 0)
	amy := f.seedStudent(t, "S001", "Amy", 8, models.StudentStatusEnrolled)
	f.seedEvaluation(t, amy.ID, f.teacher.ID, "Behaviour", 2, friday+1)
	f.seedEvaluation(t, amy.ID, f.teacher.ID, "Homework", 1, friday+2)

	payload, filename, err := svc.ExportWeekly(ctx, f.teacher, friday)
	require.NoError(t, err)
	require.Equal(t, "weekly-report-2024-03-08.xlsx", filename)

	book, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer book.Close()

	header, err := book.GetRows(weeklySheetName)
	require.NoError(t, err)
	require.Len(t, header, 3)
	require.Equal(t, []string{"Student ID", "English Name", "Chinese Name", "Grade", "Behaviour", "Homework", "Total"}, header[1])
	require.Equal(t, "S001", header[2][0])
	require.Equal(t, "3", header[2][6])

	_, _, err = svc.ExportWeekly(ctx, nil, friday)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.ExportWeekly(ctx, f.teacher, 0)
	require.ErrorIs(t, err, ErrInvalidReportDate)
}

func TestReportCategoriesSorted(t *testing.T) {
	rows := []dto.WeeklyReportStudent{
		{PointsByCategory: map[string]int{"Homework": 1, "Behaviour": 2}},
		{PointsByCategory: map[string]int{"Attendance": 1}},
	}
	require.Equal(t, []string{"Attendance", "Behaviour", "Homework"}, reportCategories(rows))
}

package application

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/example/campus-yoga/internal/campustime"
	"github.com/example/campus-yoga/internal/recurrence"
)

var admin = Principal{UserID: "admin-1", IsAdmin: true}

type seriesFixture struct {
	series    *memSeriesRepo
	classes   *memClassRepo
	buildings *memBuildings
	svc       *SeriesService
	observed  map[string]int
}

func newSeriesFixture(now time.Time) *seriesFixture {
	f := &seriesFixture{
		series:    newMemSeriesRepo(),
		classes:   newMemClassRepo(),
		buildings: newMemBuildings("rec", "library"),
		observed:  make(map[string]int),
	}
	f.svc = NewSeriesService(f.series, f.classes, f.buildings, recurrence.NewEngine(campus), sequentialIDs("id"), fixedClock(now))
	f.svc.ObserveGeneration(func(source string, count int) { f.observed[source] += count })
	return f
}

func weeklyInput() SeriesInput {
	return SeriesInput{
		Name:           "Sunrise Flow",
		Description:    "Gentle vinyasa",
		InstructorName: "Ana",
		BuildingID:     "rec",
		Room:           "Studio B",
		MatsProvided:   true,
		Pattern:        "weekly",
		Days:           []int{3, 1},
		StartDate:      "2024-03-04",
		EndDate:        "2024-03-17",
		StartTime:      "07:00",
		EndTime:        "08:00",
	}
}

func instanceStarts(classes []ClassInstance) []time.Time {
	starts := make([]time.Time, 0, len(classes))
	for _, class := range classes {
		starts = append(starts, class.Start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts
}

func TestSeriesService_CreateSeriesWithClasses(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 1, 12, 0)

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)

		_, err := f.svc.CreateSeriesWithClasses(context.Background(), Principal{UserID: "u1"}, weeklyInput())
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("materialises every weekly occurrence", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)

		result, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, weeklyInput())
		if err != nil {
			t.Fatalf("CreateSeriesWithClasses returned error: %v", err)
		}
		if result.Generated != 4 {
			t.Fatalf("expected 4 generated classes, got %d", result.Generated)
		}
		if result.Series.GeneratedThrough == nil || result.Series.GeneratedThrough.String() != "2024-03-17" {
			t.Fatalf("expected generated-through 2024-03-17, got %v", result.Series.GeneratedThrough)
		}
		if got := result.Series.Days; len(got) != 2 || got[0] != time.Monday || got[1] != time.Wednesday {
			t.Fatalf("expected sorted days [Monday Wednesday], got %v", got)
		}
		if f.observed["create"] != 4 {
			t.Fatalf("expected observer to see 4 instances, got %d", f.observed["create"])
		}

		stored, _ := f.classes.ListClasses(context.Background(), ClassFilter{SeriesID: result.Series.ID})
		want := []time.Time{
			campusTime(2024, time.March, 4, 7, 0),
			campusTime(2024, time.March, 6, 7, 0),
			campusTime(2024, time.March, 11, 7, 0),
			campusTime(2024, time.March, 13, 7, 0),
		}
		got := instanceStarts(stored)
		if len(got) != len(want) {
			t.Fatalf("expected %d stored classes, got %d", len(want), len(got))
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Fatalf("instance %d: expected start %v, got %v", i, want[i], got[i])
			}
		}
		for _, class := range stored {
			if class.ClassName != "Sunrise Flow" || class.Room != "Studio B" || !class.MatsProvided {
				t.Fatalf("instance did not copy template fields: %+v", class)
			}
			if class.Duration() != time.Hour {
				t.Fatalf("expected one hour class, got %v", class.Duration())
			}
		}
	})

	t.Run("keeps wall clock times across daylight saving change", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)

		input := weeklyInput()
		input.Days = []int{0}
		input.StartDate = "2024-03-03"
		input.EndDate = "2024-03-10"
		result, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, input)
		if err != nil {
			t.Fatalf("CreateSeriesWithClasses returned error: %v", err)
		}
		stored, _ := f.classes.ListClasses(context.Background(), ClassFilter{SeriesID: result.Series.ID})
		if len(stored) != 2 {
			t.Fatalf("expected 2 classes, got %d", len(stored))
		}
		for _, class := range stored {
			if h := class.Start.In(campus).Hour(); h != 7 {
				t.Fatalf("expected 07:00 local start, got hour %d", h)
			}
		}
	})

	t.Run("reports field errors", func(t *testing.T) {
		t.Parallel()

		cases := map[string]func(*SeriesInput){
			"pattern":    func(in *SeriesInput) { in.Pattern = "daily" },
			"days":       func(in *SeriesInput) { in.Days = nil },
			"end_date":   func(in *SeriesInput) { in.EndDate = "2024-03-01" },
			"start_time": func(in *SeriesInput) { in.StartTime = "7am" },
			"end_time":   func(in *SeriesInput) { in.EndTime = "07:20" },
			"name":       func(in *SeriesInput) { in.Name = "" },
		}
		for field, mutate := range cases {
			input := weeklyInput()
			mutate(&input)

			f := newSeriesFixture(now)
			_, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("%s: expected ValidationError, got %v", field, err)
			}
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("%s: expected field error, got %v", field, vErr.FieldErrors)
			}
			if len(f.series.items) != 0 || len(f.classes.items) != 0 {
				t.Fatalf("%s: expected nothing stored", field)
			}
		}
	})

	t.Run("rejects whitespace-only text fields", func(t *testing.T) {
		t.Parallel()

		input := weeklyInput()
		input.Name = "   "
		input.InstructorName = "  "
		input.Room = "\t"

		f := newSeriesFixture(now)
		_, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, input)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "instructor_name", "room"} {
			if vErr.FieldErrors[field] != "must not be blank" {
				t.Fatalf("%s: expected blank error, got %v", field, vErr.FieldErrors)
			}
		}
		if len(f.series.items) != 0 || len(f.classes.items) != 0 {
			t.Fatalf("expected nothing stored")
		}
	})

	t.Run("rejects classes longer than two hours", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)

		input := weeklyInput()
		input.EndTime = "09:01"
		_, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, input)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["end_time"] == "" {
			t.Fatalf("expected end_time validation error, got %v", err)
		}
	})

	t.Run("rejects unknown buildings", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)

		input := weeklyInput()
		input.BuildingID = "nowhere"
		_, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, input)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["building_id"] == "" {
			t.Fatalf("expected building_id validation error, got %v", err)
		}
	})

	t.Run("open-ended series are stored without instances", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)

		input := weeklyInput()
		input.EndDate = ""
		result, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, input)
		if err != nil {
			t.Fatalf("CreateSeriesWithClasses returned error: %v", err)
		}
		if result.Generated != 0 || len(f.classes.items) != 0 {
			t.Fatalf("expected no instances, got %d", result.Generated)
		}
		if !result.Series.OpenEnded() || result.Series.GeneratedThrough != nil {
			t.Fatalf("expected open-ended series without progress, got %+v", result.Series)
		}
	})

	t.Run("returns room conflicts as warnings", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)
		f.classes.seed(ClassInstance{
			ID:             "existing",
			ClassName:      "Pilates",
			InstructorName: "Ben",
			BuildingID:     "rec",
			Room:           "studio b",
			Start:          campusTime(2024, time.March, 6, 7, 30),
			End:            campusTime(2024, time.March, 6, 8, 30),
		})

		result, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, weeklyInput())
		if err != nil {
			t.Fatalf("CreateSeriesWithClasses returned error: %v", err)
		}
		if result.Generated != 4 {
			t.Fatalf("conflicts must not block creation, got %d classes", result.Generated)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected one warning, got %+v", result.Warnings)
		}
		if w := result.Warnings[0]; w.Type != "room" || w.WithClassID != "existing" {
			t.Fatalf("unexpected warning %+v", w)
		}
	})

	t.Run("removes the series when instances cannot be stored", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)
		f.classes.bulkErr = errors.New("disk full")

		_, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, weeklyInput())
		if err == nil {
			t.Fatalf("expected error")
		}
		if len(f.series.items) != 0 || len(f.series.deleted) != 1 {
			t.Fatalf("expected series to be removed, items=%d deleted=%v", len(f.series.items), f.series.deleted)
		}
	})
}

func seedSeries(t *testing.T, f *seriesFixture, input SeriesInput) ClassSeries {
	t.Helper()
	result, err := f.svc.CreateSeriesWithClasses(context.Background(), admin, input)
	if err != nil {
		t.Fatalf("seed series: %v", err)
	}
	return result.Series
}

func TestSeriesService_UpdateSeries(t *testing.T) {
	t.Parallel()

	// now falls between the first and second instance
	now := campusTime(2024, time.March, 5, 9, 0)
	f := newSeriesFixture(now)
	series := seedSeries(t, f, weeklyInput())

	updated, propagated, err := f.svc.UpdateSeries(context.Background(), admin, series.ID, SeriesPatch{
		Name:         strPtr("  Evening Flow "),
		Room:         strPtr("Studio C"),
		MatsProvided: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("UpdateSeries returned error: %v", err)
	}
	if updated.Name != "Evening Flow" || updated.Room != "Studio C" || updated.MatsProvided {
		t.Fatalf("series not updated: %+v", updated)
	}
	if propagated != 3 {
		t.Fatalf("expected 3 future instances updated, got %d", propagated)
	}

	stored, _ := f.classes.ListClasses(context.Background(), ClassFilter{SeriesID: series.ID})
	for _, class := range stored {
		if class.Start.Before(now) {
			if class.ClassName != "Sunrise Flow" {
				t.Fatalf("past instance must keep its name, got %q", class.ClassName)
			}
			continue
		}
		if class.ClassName != "Evening Flow" || class.Room != "Studio C" || class.MatsProvided {
			t.Fatalf("future instance not updated: %+v", class)
		}
		if class.Start.In(campus).Hour() != 7 {
			t.Fatalf("times must not change, got %v", class.Start)
		}
	}

	t.Run("rejects an empty patch", func(t *testing.T) {
		_, _, err := f.svc.UpdateSeries(context.Background(), admin, series.ID, SeriesPatch{})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects whitespace-only values", func(t *testing.T) {
		for field, patch := range map[string]SeriesPatch{
			"name":            {Name: strPtr("   ")},
			"instructor_name": {InstructorName: strPtr(" ")},
			"building_id":     {BuildingID: strPtr("  ")},
			"room":            {Room: strPtr("")},
		} {
			_, _, err := f.svc.UpdateSeries(context.Background(), admin, series.ID, patch)
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.FieldErrors[field] == "" {
				t.Fatalf("%s: expected field error, got %v", field, err)
			}
		}
		stored := f.series.items[series.ID]
		if stored.Name != "Evening Flow" || stored.Room != "Studio C" {
			t.Fatalf("series changed by rejected patch: %+v", stored)
		}
	})

	t.Run("unknown series", func(t *testing.T) {
		_, _, err := f.svc.UpdateSeries(context.Background(), admin, "missing", SeriesPatch{Name: strPtr("x")})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSeriesService_RetireFuture(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 5, 9, 0)

	t.Run("cancel keeps rows and deactivates the series", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)
		series := seedSeries(t, f, weeklyInput())

		count, err := f.svc.CancelFutureClasses(context.Background(), admin, series.ID)
		if err != nil {
			t.Fatalf("CancelFutureClasses returned error: %v", err)
		}
		if count != 3 {
			t.Fatalf("expected 3 cancelled, got %d", count)
		}
		if len(f.classes.items) != 4 {
			t.Fatalf("cancel must not delete rows, got %d", len(f.classes.items))
		}
		for _, class := range f.classes.items {
			if class.IsCancelled == class.Start.Before(now) {
				t.Fatalf("unexpected cancellation state for %v: %v", class.Start, class.IsCancelled)
			}
		}
		if f.series.items[series.ID].IsActive {
			t.Fatalf("expected series to be deactivated")
		}
	})

	t.Run("delete removes future rows and their registrations", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)
		registrations := newMemRegistrationRepo(f.classes)
		series := seedSeries(t, f, weeklyInput())

		future, _ := f.classes.ListClasses(context.Background(), ClassFilter{StartsFrom: &now})
		if err := registrations.CreateRegistration(context.Background(), Registration{ID: "r1", UserID: "u1", ClassID: future[0].ID}); err != nil {
			t.Fatalf("seed registration: %v", err)
		}

		count, err := f.svc.DeleteFutureClasses(context.Background(), admin, series.ID)
		if err != nil {
			t.Fatalf("DeleteFutureClasses returned error: %v", err)
		}
		if count != 3 || len(f.classes.items) != 1 {
			t.Fatalf("expected 3 deleted and 1 kept, got %d deleted %d kept", count, len(f.classes.items))
		}
		if len(registrations.items) != 0 {
			t.Fatalf("expected registrations to be removed, got %d", len(registrations.items))
		}
	})

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		f := newSeriesFixture(now)
		if _, err := f.svc.DeleteFutureClasses(context.Background(), Principal{UserID: "u"}, "s"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestSeriesService_DeleteSeriesKeepsInstances(t *testing.T) {
	t.Parallel()
	f := newSeriesFixture(campusTime(2024, time.March, 1, 12, 0))
	series := seedSeries(t, f, weeklyInput())

	if err := f.svc.DeleteSeries(context.Background(), admin, series.ID); err != nil {
		t.Fatalf("DeleteSeries returned error: %v", err)
	}
	if len(f.classes.items) != 4 {
		t.Fatalf("expected instances to remain, got %d", len(f.classes.items))
	}
	if err := f.svc.DeleteSeries(context.Background(), admin, series.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSeriesService_ExtendOpenSeries(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 1, 12, 0)
	f := newSeriesFixture(now)

	input := weeklyInput()
	input.Pattern = "bi-weekly"
	input.Days = []int{1}
	input.EndDate = ""
	series := seedSeries(t, f, input)

	first, err := f.svc.ExtendOpenSeries(context.Background(), campustime.NewDate(2024, time.March, 24))
	if err != nil {
		t.Fatalf("ExtendOpenSeries returned error: %v", err)
	}
	second, err := f.svc.ExtendOpenSeries(context.Background(), campustime.NewDate(2024, time.April, 21))
	if err != nil {
		t.Fatalf("ExtendOpenSeries returned error: %v", err)
	}
	again, err := f.svc.ExtendOpenSeries(context.Background(), campustime.NewDate(2024, time.April, 21))
	if err != nil {
		t.Fatalf("ExtendOpenSeries returned error: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected repeated horizon to add nothing, got %d", again)
	}
	if f.observed["extend"] != first+second {
		t.Fatalf("observer saw %d, expected %d", f.observed["extend"], first+second)
	}

	// incremental extension must agree with a one-shot expansion through the final horizon
	endsOn := campustime.NewDate(2024, time.April, 21)
	closed := series.definition()
	closed.EndsOn = &endsOn
	oneShot, err := recurrence.NewEngine(campus).Expand(closed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}

	stored, _ := f.classes.ListClasses(context.Background(), ClassFilter{SeriesID: series.ID})
	got := instanceStarts(stored)
	if len(got) != len(oneShot) || len(got) != first+second {
		t.Fatalf("expected %d instances, got %d (first=%d second=%d)", len(oneShot), len(got), first, second)
	}
	for i, occurrence := range oneShot {
		if !got[i].Equal(occurrence.Start) {
			t.Fatalf("instance %d: expected %v, got %v", i, occurrence.Start, got[i])
		}
	}

	progress := f.series.items[series.ID].GeneratedThrough
	if progress == nil || !progress.Equal(endsOn) {
		t.Fatalf("expected generated-through %v, got %v", endsOn, progress)
	}
}

// interleavedSeriesRepo runs onList after reading the open series but before returning them,
// so the caller works from a list that another extension has already acted on.
type interleavedSeriesRepo struct {
	*memSeriesRepo
	onList func()
}

func (r *interleavedSeriesRepo) ListSeries(ctx context.Context, filter SeriesFilter) ([]ClassSeries, error) {
	listed, err := r.memSeriesRepo.ListSeries(ctx, filter)
	if hook := r.onList; hook != nil {
		r.onList = nil
		hook()
	}
	return listed, err
}

func TestSeriesService_ExtendOpenSeriesOverlappingRuns(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 1, 12, 0)
	f := newSeriesFixture(now)

	input := weeklyInput()
	input.Days = []int{1}
	input.EndDate = ""
	series := seedSeries(t, f, input)

	horizon := campustime.NewDate(2024, time.March, 24)
	repo := &interleavedSeriesRepo{memSeriesRepo: f.series}
	svc := NewSeriesService(repo, f.classes, f.buildings, recurrence.NewEngine(campus), sequentialIDs("run"), fixedClock(now))

	var inner int
	repo.onList = func() {
		var err error
		inner, err = svc.ExtendOpenSeries(context.Background(), horizon)
		if err != nil {
			t.Errorf("interleaved ExtendOpenSeries returned error: %v", err)
		}
	}

	outer, err := svc.ExtendOpenSeries(context.Background(), horizon)
	if err != nil {
		t.Fatalf("ExtendOpenSeries returned error: %v", err)
	}
	if inner != 3 || outer != 0 {
		t.Fatalf("expected the interleaved run to create 3 and the stale run none, got inner=%d outer=%d", inner, outer)
	}

	stored, _ := f.classes.ListClasses(context.Background(), ClassFilter{SeriesID: series.ID})
	seen := make(map[time.Time]int)
	for _, class := range stored {
		seen[class.Start]++
	}
	if len(stored) != 3 || len(seen) != 3 {
		t.Fatalf("expected 3 distinct instances, got %d rows over %d starts", len(stored), len(seen))
	}

	t.Run("store skips instances already present", func(t *testing.T) {
		again := f.svc.instancesFor(f.series.items[series.ID], []recurrence.Occurrence{{Start: stored[0].Start, End: stored[0].End}})
		n, err := f.classes.BulkInsertInstances(context.Background(), again)
		if err != nil || n != 0 {
			t.Fatalf("expected duplicate start to be skipped, got n=%d err=%v", n, err)
		}
	})
}

func TestSeriesService_ExtendOpenSeriesSkipsInactive(t *testing.T) {
	t.Parallel()
	f := newSeriesFixture(campusTime(2024, time.March, 1, 12, 0))

	input := weeklyInput()
	input.EndDate = ""
	series := seedSeries(t, f, input)
	if _, err := f.svc.CancelFutureClasses(context.Background(), admin, series.ID); err != nil {
		t.Fatalf("CancelFutureClasses returned error: %v", err)
	}

	created, err := f.svc.ExtendOpenSeries(context.Background(), campustime.NewDate(2024, time.April, 1))
	if err != nil {
		t.Fatalf("ExtendOpenSeries returned error: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected inactive series to be skipped, got %d", created)
	}
}

func TestSeriesService_ListSeries(t *testing.T) {
	t.Parallel()
	f := newSeriesFixture(campusTime(2024, time.March, 1, 12, 0))
	seedSeries(t, f, weeklyInput())

	if _, err := f.svc.ListSeries(context.Background(), Principal{UserID: "u"}, false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	list, err := f.svc.ListSeries(context.Background(), admin, true)
	if err != nil {
		t.Fatalf("ListSeries returned error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one series, got %d", len(list))
	}
	got, err := f.svc.GetSeries(context.Background(), admin, list[0].ID)
	if err != nil || got.Name != "Sunrise Flow" {
		t.Fatalf("GetSeries returned %+v, %v", got, err)
	}
}

func TestNormalizeDays(t *testing.T) {
	t.Parallel()
	got := normalizeDays([]int{5, 1, 5, 9, -1, 0})
	want := []time.Weekday{time.Sunday, time.Monday, time.Friday}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

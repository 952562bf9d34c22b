package themes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/repository/memory"
	appErrors "dreamlog-backend/pkg/errors"
)

type mockThemeStore struct {
	mock.Mock
}

func (m *mockThemeStore) GetTheme(ctx context.Context, userID, theme string) (dream.ThemeCounter, bool, error) {
	args := m.Called(ctx, userID, theme)
	return args.Get(0).(dream.ThemeCounter), args.Bool(1), args.Error(2)
}

func (m *mockThemeStore) CreateTheme(ctx context.Context, counter dream.ThemeCounter) error {
	return m.Called(ctx, counter).Error(0)
}

func (m *mockThemeStore) IncrementTheme(ctx context.Context, userID, theme string, at time.Time) error {
	return m.Called(ctx, userID, theme, at).Error(0)
}

func (m *mockThemeStore) ListThemes(ctx context.Context, userID string) ([]dream.ThemeCounter, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]dream.ThemeCounter), args.Error(1)
}

var now = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestRecordThemeOccurrence_CountEqualsN(t *testing.T) {
	store := memory.NewThemeStore()
	tracker := NewTracker(store, zap.NewNop(), nil)
	ctx := context.Background()

	const n = 7
	for i := 0; i < n; i++ {
		require.NoError(t, tracker.RecordThemeOccurrence(ctx, "u1", "  Falling  Down ", now.Add(time.Duration(i)*time.Hour)))
	}

	c, found, err := store.GetTheme(ctx, "u1", "falling_down")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, n, c.Count)
	assert.Equal(t, now.Add((n-1)*time.Hour), c.LastOccurred)
}

func TestRecordThemeOccurrence_ConcurrentFirstOccurrences(t *testing.T) {
	store := memory.NewThemeStore()
	tracker := NewTracker(store, zap.NewNop(), nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tracker.RecordThemeOccurrence(context.Background(), "u1", "water", now))
		}()
	}
	wg.Wait()

	c, _, _ := store.GetTheme(context.Background(), "u1", "water")
	assert.Equal(t, n, c.Count)
}

func TestRecordThemeOccurrence_RetriesConflictOnce(t *testing.T) {
	store := new(mockThemeStore)
	conflict := appErrors.NewPersistenceConflict("exists", nil)

	store.On("GetTheme", mock.Anything, "u1", "water").Return(dream.ThemeCounter{}, false, nil).Once()
	store.On("CreateTheme", mock.Anything, mock.Anything).Return(conflict).Once()
	store.On("GetTheme", mock.Anything, "u1", "water").Return(dream.ThemeCounter{Count: 1}, true, nil).Once()
	store.On("IncrementTheme", mock.Anything, "u1", "water", now).Return(nil).Once()

	require.NoError(t, NewTracker(store, zap.NewNop(), nil).RecordThemeOccurrence(context.Background(), "u1", "Water", now))
	store.AssertExpectations(t)
}

func TestRecordThemeOccurrence_DropsAfterSecondConflict(t *testing.T) {
	store := new(mockThemeStore)
	conflict := appErrors.NewPersistenceConflict("exists", nil)
	store.On("GetTheme", mock.Anything, "u1", "water").Return(dream.ThemeCounter{}, false, nil)
	store.On("CreateTheme", mock.Anything, mock.Anything).Return(conflict)

	core, logs := observer.New(zapcore.WarnLevel)
	err := NewTracker(store, zap.New(core), nil).RecordThemeOccurrence(context.Background(), "u1", "water", now)

	assert.NoError(t, err)
	store.AssertNumberOfCalls(t, "CreateTheme", 2)
	assert.Equal(t, 1, logs.FilterMessage("theme increment dropped after conflict retry").Len())
}

func TestRecordThemeOccurrence_PropagatesFailure(t *testing.T) {
	store := new(mockThemeStore)
	store.On("GetTheme", mock.Anything, "u1", "water").Return(dream.ThemeCounter{}, false, appErrors.NewPersistenceFailure("down", errors.New("x")))

	err := NewTracker(store, zap.NewNop(), nil).RecordThemeOccurrence(context.Background(), "u1", "water", now)
	assert.True(t, appErrors.IsPersistenceFailure(err))
}

func TestRecordThemeOccurrence_BlankThemeIsIgnored(t *testing.T) {
	store := new(mockThemeStore)
	assert.NoError(t, NewTracker(store, zap.NewNop(), nil).RecordThemeOccurrence(context.Background(), "u1", "   ", now))
	store.AssertNotCalled(t, "GetTheme", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordAll_ContinuesPastFailures(t *testing.T) {
	store := new(mockThemeStore)
	failure := appErrors.NewPersistenceFailure("down", nil)
	store.On("GetTheme", mock.Anything, "u1", "a").Return(dream.ThemeCounter{}, false, failure)
	store.On("GetTheme", mock.Anything, "u1", "b").Return(dream.ThemeCounter{Count: 2}, true, nil)
	store.On("IncrementTheme", mock.Anything, "u1", "b", now).Return(nil)

	err := NewTracker(store, zap.NewNop(), nil).RecordAll(context.Background(), "u1", []string{"A", "b", "a"}, now)
	assert.Equal(t, failure, err)
	store.AssertCalled(t, "IncrementTheme", mock.Anything, "u1", "b", now)
}

func TestFrequencies_Sorted(t *testing.T) {
	store := new(mockThemeStore)
	store.On("ListThemes", mock.Anything, "u1").Return([]dream.ThemeCounter{
		{Theme: "water", Count: 2},
		{Theme: "falling", Count: 5},
		{Theme: "house", Count: 2},
	}, nil)
	tracker := NewTracker(store, zap.NewNop(), nil)

	got, err := tracker.Frequencies(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"falling", "house", "water"}, []string{got[0].Theme, got[1].Theme, got[2].Theme})

	got, err = tracker.Frequencies(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

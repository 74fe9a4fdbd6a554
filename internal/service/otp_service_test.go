package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOTPService(t *testing.T, repo *memoryCodeRepo, clock *fakeClock) *OTPService {
	t.Helper()
	svc, err := NewOTPService(repo, 5*time.Minute, "test-pepper", false, clock.Now)
	require.NoError(t, err)
	return svc
}

func TestOTPService_GenerateCode_Range(t *testing.T) {
	svc := newTestOTPService(t, newMemoryCodeRepo(), newFakeClock())

	for i := 0; i < 2000; i++ {
		code, err := svc.GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

// Первая цифра кода должна быть равномерно распределена по 1..9.
// Критическое значение chi-square для 8 степеней свободы при p=0.001 - 26.12.
func TestOTPService_GenerateCode_Distribution(t *testing.T) {
	svc := newTestOTPService(t, newMemoryCodeRepo(), newFakeClock())

	const samples = 10000
	var buckets [9]int
	for i := 0; i < samples; i++ {
		code, err := svc.GenerateCode()
		require.NoError(t, err)
		buckets[code[0]-'1']++
	}

	expected := float64(samples) / 9
	var chiSquare float64
	for _, observed := range buckets {
		diff := float64(observed) - expected
		chiSquare += diff * diff / expected
	}
	assert.Less(t, chiSquare, 26.12, "распределение первой цифры: %v", buckets)
}

func TestOTPService_IssueAndVerify_SingleUse(t *testing.T) {
	repo := newMemoryCodeRepo()
	svc := newTestOTPService(t, repo, newFakeClock())
	ctx := context.Background()

	code, err := svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.count())

	for _, stored := range repo.codes {
		assert.NotEqual(t, code, stored.CodeHash, "код не должен храниться в открытом виде")
		assert.Len(t, stored.CodeHash, 64)
	}

	ok, err := svc.Verify(ctx, "alice@example.com", code)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, repo.count())

	ok, err = svc.Verify(ctx, "alice@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok, "повторная проверка того же кода должна завершиться неудачей")
}

func TestOTPService_Verify_WrongSubjectOrCode(t *testing.T) {
	svc := newTestOTPService(t, newMemoryCodeRepo(), newFakeClock())
	ctx := context.Background()

	code, err := svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "bob@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, bad := range []string{"", "12345", "1234567", "abcdef"} {
		ok, err = svc.Verify(ctx, "alice@example.com", bad)
		require.NoError(t, err)
		assert.False(t, ok, "код %q", bad)
	}

	// Код по-прежнему действителен для своего subject
	ok, err = svc.Verify(ctx, "alice@example.com", code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPService_Verify_Expired(t *testing.T) {
	repo := newMemoryCodeRepo()
	clock := newFakeClock()
	svc := newTestOTPService(t, repo, clock)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	ok, err := svc.Verify(ctx, "alice@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, repo.count(), "просроченный код удаляется при проверке")
}

func TestOTPService_Verify_ExactExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	svc := newTestOTPService(t, newMemoryCodeRepo(), clock)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	ok, err := svc.Verify(ctx, "alice@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok, "код недействителен ровно в момент истечения")
}

func TestOTPService_MultipleOutstandingCodes(t *testing.T) {
	svc := newTestOTPService(t, newMemoryCodeRepo(), newFakeClock())
	ctx := context.Background()

	first, err := svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)
	if first == second {
		t.Skip("совпадение кодов")
	}

	ok, err := svc.Verify(ctx, "alice@example.com", first)
	require.NoError(t, err)
	assert.True(t, ok, "ранее выданный код остается действительным")
}

func TestOTPService_InvalidatePrevious(t *testing.T) {
	repo := newMemoryCodeRepo()
	svc, err := NewOTPService(repo, 5*time.Minute, "p", true, newFakeClock().Now)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)
	_, err = svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.count())
}

func TestOTPService_ConcurrentVerify_SingleWinner(t *testing.T) {
	svc := newTestOTPService(t, newMemoryCodeRepo(), newFakeClock())
	ctx := context.Background()

	code, err := svc.Issue(ctx, "alice@example.com")
	require.NoError(t, err)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Verify(ctx, "alice@example.com", code)
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestOTPService_StorageUnavailable(t *testing.T) {
	repo := newMemoryCodeRepo()
	svc := newTestOTPService(t, repo, newFakeClock())
	repo.err = errStorageDown

	_, err := svc.Issue(context.Background(), "alice@example.com")
	assert.True(t, errors.Is(err, ErrStorageUnavailable))

	_, err = svc.Verify(context.Background(), "alice@example.com", "123456")
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}

func TestOTPService_SweepExpired(t *testing.T) {
	repo := newMemoryCodeRepo()
	clock := newFakeClock()
	svc := newTestOTPService(t, repo, clock)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "old@example.com")
	require.NoError(t, err)
	clock.Advance(4 * time.Minute)
	_, err = svc.Issue(ctx, "new@example.com")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, repo.count())
}

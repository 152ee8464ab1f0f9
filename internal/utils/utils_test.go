package utils_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freenet/river-sub001/internal/utils"
)

func TestRiverErrorMatchesAcrossDetails(t *testing.T) {
	base := utils.NewRiverError("decode failed")
	detailed := base.WithDetails("truncated input")

	require.ErrorIs(t, detailed, base)
	require.ErrorIs(t, fmt.Errorf("outer: %w", detailed), base)
	require.Equal(t, "decode failed: truncated input", detailed.Error())
	require.Equal(t, "decode failed", base.Error())
}

func TestRiverErrorDistinctMessagesDoNotMatch(t *testing.T) {
	a := utils.NewRiverError("decode failed")
	b := utils.NewRiverError("encode failed")

	require.NotErrorIs(t, a, b)
	require.NotErrorIs(t, a, errors.New("decode failed"))
}

func TestRiverErrorDetailsDoNotMutateBase(t *testing.T) {
	base := utils.NewRiverError("bad member")
	_ = base.WithDetails("unknown inviter")

	require.Equal(t, "bad member", base.Error())
}

func TestFormatPrettyTimeToday(t *testing.T) {
	now := time.Now()
	got := utils.FormatPrettyTime(now.UnixMicro())

	require.True(t, strings.HasPrefix(got, "Today "), "got %q", got)
	require.Contains(t, got, now.Format("15:04"))
}

func TestFormatPrettyTimeYesterday(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	got := utils.FormatPrettyTime(yesterday.UnixMicro())

	require.True(t, strings.HasPrefix(got, "Yesterday "), "got %q", got)
}

func TestFormatPrettyTimeOldDatesCarryTheYear(t *testing.T) {
	old := time.Date(2019, time.March, 5, 14, 30, 0, 0, time.Local)
	got := utils.FormatPrettyTime(old.UnixMicro())

	require.Equal(t, "2019 Mar 05 14:30", got)
}

package gridmat

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrConfiguration, ErrUnsupportedConversion, ErrEntryOutOfRange}
	for i, a := range sentinels {
		require.Error(t, a)
		for _, b := range sentinels[i+1:] {
			require.NotErrorIs(t, a, b)
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := errors.Wrapf(ErrEntryOutOfRange, "entry (%d,%d)", 3, 4)
	require.ErrorIs(t, err, ErrEntryOutOfRange)
	require.Contains(t, err.Error(), "entry (3,4)")
}

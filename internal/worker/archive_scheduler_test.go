package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingArchiver struct {
	runs int
	err  error
}

func (a *countingArchiver) ArchiveExpired(context.Context) (int64, error) {
	a.runs++
	return 2, a.err
}

func TestArchiveSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewArchiveScheduler("every tuesday", &countingArchiver{}, 0, nil)
	assert.Error(t, err)
}

func TestArchiveSchedulerRunOnce(t *testing.T) {
	archiver := &countingArchiver{}
	s, err := NewArchiveScheduler("0 3 * * *", archiver, 0, nil)
	require.NoError(t, err)

	s.RunOnce()
	archiver.err = errors.New("store down")
	s.RunOnce()
	assert.Equal(t, 2, archiver.runs)

	s.Start()
	s.Stop()
}

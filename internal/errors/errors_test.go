package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/camsync/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestFactoryMessages(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Missing configuration", f.New(errors.ErrMissingConfig).Error())
	assert.Equal(t, "boom", f.WithMessage(errors.ErrInternal, "boom").Error())
	assert.Equal(t, "Name already in use: cam0", f.WithData(errors.ErrNameConflict, "cam0").Error())

	cause := stderrors.New("link down")
	wrapped := f.Wrap(errors.ErrConnectionFailed, cause)
	assert.Equal(t, "Connection failed: link down", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	both := wrapped.WithData("host=pi")
	assert.Equal(t, "Connection failed: host=pi: link down", both.Error())
}

func TestHasCode(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrDeviceUnavailable)
	outer := f.Wrap(errors.ErrHardwareReadFailed, fmt.Errorf("reading temperature: %w", inner))

	assert.True(t, errors.HasCode(outer, errors.ErrHardwareReadFailed))
	assert.True(t, errors.HasCode(outer, errors.ErrDeviceUnavailable))
	assert.False(t, errors.HasCode(outer, errors.ErrNameConflict))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))

	assert.Equal(t, errors.ErrHardwareReadFailed, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(stderrors.New("plain")))
}

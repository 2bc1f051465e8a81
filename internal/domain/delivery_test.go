package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAdvance(t *testing.T) {
	assert.True(t, CanAdvance(DeliveryStatusSent, DeliveryStatusOpened))
	assert.True(t, CanAdvance(DeliveryStatusSent, DeliveryStatusClicked))
	assert.True(t, CanAdvance(DeliveryStatusOpened, DeliveryStatusClicked))

	assert.False(t, CanAdvance(DeliveryStatusOpened, DeliveryStatusOpened))
	assert.False(t, CanAdvance(DeliveryStatusClicked, DeliveryStatusOpened))
	assert.False(t, CanAdvance(DeliveryStatusFailed, DeliveryStatusOpened))
	assert.False(t, CanAdvance(DeliveryStatusFailed, DeliveryStatusClicked))
	assert.False(t, CanAdvance(DeliveryStatusOpened, DeliveryStatusSent))
}

func TestAdvanceSources(t *testing.T) {
	assert.Equal(t, []DeliveryStatus{DeliveryStatusSent}, AdvanceSources(DeliveryStatusOpened))
	assert.Equal(t, []DeliveryStatus{DeliveryStatusSent, DeliveryStatusOpened}, AdvanceSources(DeliveryStatusClicked))
	assert.Empty(t, AdvanceSources(DeliveryStatusFailed))
}

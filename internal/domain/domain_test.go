package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		assert.True(t, ValidOrderStatus(s), "status %q should be valid", s)
	}
	assert.False(t, ValidOrderStatus("bogus"))
	assert.False(t, ValidOrderStatus(""))
	assert.False(t, ValidOrderStatus("Pending"), "statuses are lowercase")
}

func TestValidCategory(t *testing.T) {
	for _, c := range []Category{CategoryMen, CategoryWomen, CategoryKids, CategoryUnisex} {
		assert.True(t, ValidCategory(c))
	}
	assert.False(t, ValidCategory("Accessories"))
	assert.False(t, ValidCategory(""))
}

func TestValidSize(t *testing.T) {
	for _, s := range []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL} {
		assert.True(t, ValidSize(s))
	}
	assert.False(t, ValidSize("XXXL"))
	assert.False(t, ValidSize("m"), "sizes are uppercase")
}

func TestProductHasSize(t *testing.T) {
	p := Product{Sizes: []Size{SizeS, SizeM}}
	assert.True(t, p.HasSize(SizeM))
	assert.False(t, p.HasSize(SizeXL))

	empty := Product{}
	assert.False(t, empty.HasSize(SizeM))
}

package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/console/internal/domain/shared"
)

func TestProduct_UnmarshalServerShape(t *testing.T) {
	body := `{"_id":"p1","name":"Jute Rug","description":"Handwoven","amount":"1299.50",
		"sku":"JR-1","images":["/uploads/a.png"],"createdAt":"2025-01-05T10:00:00.000Z"}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, "p1", p.ResourceID())
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("1299.5")))
	assert.Equal(t, []string{"/uploads/a.png"}, p.Images)
	assert.Equal(t, 2025, p.CreatedAt.Year())

	var numeric Product
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p2","amount":450}`), &numeric))
	assert.True(t, numeric.Amount.Equal(decimal.NewFromInt(450)))
}

func TestMatchesName(t *testing.T) {
	assert.True(t, MatchesName("Jute Rug", ""))
	assert.True(t, MatchesName("Jute Rug", "rug"))
	assert.True(t, MatchesName("Jute Rug", "JUTE"))
	assert.False(t, MatchesName("Jute Rug", "mat"))
}

func TestProductDraft_Check(t *testing.T) {
	valid := func() ProductDraft {
		d := NewProductDraft(Product{ID: "p1", Name: "Rug", Description: "d", Amount: decimal.NewFromInt(10), Images: []string{"/a.png"}})
		return d
	}

	t.Run("existing product without new images is fine", func(t *testing.T) {
		assert.NoError(t, valid().Check())
	})

	t.Run("amount must be positive", func(t *testing.T) {
		d := valid()
		d.Amount = decimal.Zero
		err := d.Check()
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "amount", ve.Field)
	})

	t.Run("new product needs an image", func(t *testing.T) {
		d := NewProductDraft(Product{Name: "Rug", Description: "d", Amount: decimal.NewFromInt(10)})
		assert.True(t, d.IsNew())
		err := d.Check()
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "images", ve.Field)

		require.NoError(t, d.Images.Replace(0, attachment("a.png", 1024)))
		assert.NoError(t, d.Check())
	})

	t.Run("per-file limit", func(t *testing.T) {
		d := valid()
		require.NoError(t, d.Images.Replace(1, attachment("huge.png", MaxImageSize+1)))
		err := d.Check()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "huge.png")
	})

	t.Run("total limit", func(t *testing.T) {
		d := valid()
		for i := 0; i < SlotCount; i++ {
			require.NoError(t, d.Images.Replace(i, attachment("big.png", MaxImageSize)))
		}
		// 7 x 10MB stays under the 100MB total
		assert.NoError(t, d.Check())

		d.Images = NewImageSlots(nil)
		d.ID = "p1"
		assert.NoError(t, d.Check())
	})
}

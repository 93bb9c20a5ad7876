// Package catalog binds the product, inventory and sales endpoints to the
// paged store and the dashboard.
package catalog

import (
	"context"

	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/application/validation"
	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/infrastructure/client"
)

// ProductsPath is the products collection
const ProductsPath = "/api/products"

var (
	_ store.Binding[catalog.Product, catalog.ProductDraft] = (*ProductBinding)(nil)
	_ store.Creator[catalog.Product, catalog.ProductDraft] = (*ProductBinding)(nil)
	_ store.Remover                                        = (*ProductBinding)(nil)
)

// ProductBinding plugs the products endpoint into a store. Writes are
// multipart and must be acknowledged with a truthy message.
type ProductBinding struct {
	resource  *client.Resource[catalog.Product]
	validator *validation.Validator
}

// NewProductBinding creates the products binding
func NewProductBinding(c *client.Client, v *validation.Validator) *ProductBinding {
	return &ProductBinding{
		resource: client.NewResource(c, client.Endpoint[catalog.Product]{
			Path:      ProductsPath,
			List:      client.ListOf[catalog.Product]("products"),
			Item:      client.ItemOf[catalog.Product]("product"),
			AckWrites: true,
		}),
		validator: v,
	}
}

// Fetch lists all products
func (b *ProductBinding) Fetch(ctx context.Context) ([]catalog.Product, error) {
	return b.resource.FetchAll(ctx)
}

// Draft lays out the product's images in slots
func (b *ProductBinding) Draft(p catalog.Product) catalog.ProductDraft {
	return catalog.NewProductDraft(p)
}

// Validate checks tags first, then amount and image limits
func (b *ProductBinding) Validate(d catalog.ProductDraft) error {
	if err := b.validator.Struct(d); err != nil {
		return err
	}
	return d.Check()
}

// Update sends the multipart form. When the acknowledgement does not echo
// the product, it is fetched again so the store still gets the server's copy.
func (b *ProductBinding) Update(ctx context.Context, original catalog.Product, d catalog.ProductDraft) (catalog.Product, error) {
	saved, err := b.resource.Update(ctx, original.ID, ProductForm(d))
	if err != nil {
		return catalog.Product{}, err
	}
	if saved.ID == "" {
		return b.resource.FetchOne(ctx, original.ID)
	}
	return saved, nil
}

// Blank starts a new product with empty image slots
func (b *ProductBinding) Blank() catalog.ProductDraft {
	return catalog.ProductDraft{Images: catalog.NewImageSlots(nil)}
}

// Create posts a new product. A zero result makes the store reload.
func (b *ProductBinding) Create(ctx context.Context, d catalog.ProductDraft) (catalog.Product, error) {
	return b.resource.Create(ctx, ProductForm(d))
}

// Delete removes a product
func (b *ProductBinding) Delete(ctx context.Context, id string) error {
	return b.resource.Delete(ctx, id)
}

// MatchProduct is the name search used by the products page
func MatchProduct(p catalog.Product, query string) bool {
	return catalog.MatchesName(p.Name, query)
}

// ProductForm encodes d as the multipart body of a product write.
// existingImages lists only the references kept; imagesToDelete lists each
// dropped reference once; new files go under images in slot order.
func ProductForm(d catalog.ProductDraft) *client.Multipart {
	form := client.NewMultipart().
		Field("name", d.Name).
		Field("description", d.Description).
		Field("details", d.Details).
		Field("amount", d.Amount.String()).
		Field("dimension", d.Dimension).
		Field("sku", d.SKU).
		JSONField("existingImages", nonNil(d.Images.Existing())).
		JSONField("imagesToDelete", nonNil(d.Images.ToDelete()))

	for _, a := range d.Images.Attachments() {
		form.File("images", a.Name, a.ContentType, a.Open)
	}
	return form
}

func nonNil(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

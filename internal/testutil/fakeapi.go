// Package testutil provides an in-memory admin REST service for tests of the
// client, the page bindings and the CLI.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/domain/inventory"
	"github.com/erp/console/internal/domain/shipping"
	"github.com/erp/console/internal/domain/trade"
)

// SalesPrefix is the path prefix the fake serves the sales statistics API under
const SalesPrefix = "/sales"

// RecordedRequest is a request the fake received
type RecordedRequest struct {
	Method string
	// Route is the matched gin route, e.g. "/api/products/:id"
	Route  string
	Path   string
	Header http.Header
	// Form and Files are set for multipart bodies
	Form  map[string][]string
	Files map[string][]string
	Body  []byte
}

// JSON decodes the recorded body into v
func (r RecordedRequest) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

type override struct {
	status int
	body   any
}

type login struct {
	email, password, username, token string
}

// FakeAPI serves the admin, courier and sales endpoints from memory
type FakeAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	products      []catalog.Product
	stock         []inventory.StockRow
	orders        []trade.Order
	dispatch      []shipping.DispatchOrder
	shipments     []shipping.Shipment
	tracking      map[string]json.RawMessage
	sales         []catalog.SalesRecord
	documents     map[string][]byte
	overrides     map[string][]override
	requests      []RecordedRequest
	logins        []login
	token         string
	omitWriteItem bool
	pickups       int
}

// NewFakeAPI starts a fake service that is closed when the test ends
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		tracking:  make(map[string]json.RawMessage),
		documents: make(map[string][]byte),
		overrides: make(map[string][]override),
	}

	engine := gin.New()
	engine.Use(f.record, f.authorize, f.override)

	api := engine.Group("/api")
	api.POST("/admin/login", f.login)
	api.GET("/admin/orders", f.listDispatch)

	api.GET("/products", f.listProducts)
	api.GET("/products/inventory", f.listStock)
	api.GET("/products/:id", f.getProduct)
	api.POST("/products", f.createProduct)
	api.PUT("/products/:id", f.updateProduct)
	api.DELETE("/products/:id", f.deleteProduct)

	api.GET("/orders", f.listOrders)
	api.PUT("/orders/:id", f.updateOrder)

	api.GET("/dhl/get-all-shipments", f.listShipments)
	api.POST("/dhl/fetch-tracking", f.track)
	api.POST("/dhl/schedule-pickup", f.schedulePickup)

	engine.GET(SalesPrefix+"/api/products", f.listSales)
	engine.GET("/files/*path", f.document)

	f.Server = httptest.NewServer(engine)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL of the fake
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// SeedProducts replaces the product collection
func (f *FakeAPI) SeedProducts(products ...catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = slices.Clone(products)
}

// SeedStock replaces the inventory rows
func (f *FakeAPI) SeedStock(rows ...inventory.StockRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock = slices.Clone(rows)
}

// SeedOrders replaces the order collection
func (f *FakeAPI) SeedOrders(orders ...trade.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = slices.Clone(orders)
}

// SeedDispatch replaces the dispatch orders, oldest first as the server stores them
func (f *FakeAPI) SeedDispatch(orders ...shipping.DispatchOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatch = slices.Clone(orders)
}

// SeedShipments replaces the shipment list
func (f *FakeAPI) SeedShipments(shipments ...shipping.Shipment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shipments = slices.Clone(shipments)
}

// SeedTracking sets the tracking details returned for awb
func (f *FakeAPI) SeedTracking(awb, details string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracking[awb] = json.RawMessage(details)
}

// SeedSales replaces the sales statistics rows
func (f *FakeAPI) SeedSales(records ...catalog.SalesRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = slices.Clone(records)
}

// SeedDocument serves data at /files{path}
func (f *FakeAPI) SeedDocument(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[path] = data
}

// RequireToken makes every route except login demand this bearer token
func (f *FakeAPI) RequireToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// AllowLogin registers an admin account that receives token on login
func (f *FakeAPI) AllowLogin(email, password, username, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, login{email, password, username, token})
}

// OmitWriteItem makes product writes acknowledge without echoing the product
func (f *FakeAPI) OmitWriteItem() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitWriteItem = true
}

// Respond queues a one-shot canned response for method and route
func (f *FakeAPI) Respond(method, route string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + route
	f.overrides[key] = append(f.overrides[key], override{status: status, body: body})
}

// Products returns the current product collection
func (f *FakeAPI) Products() []catalog.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.products)
}

// Orders returns the current order collection
func (f *FakeAPI) Orders() []trade.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.orders)
}

// Requests returns every request received so far
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// Count returns how many requests matched method and route
func (f *FakeAPI) Count(method, route string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Route == route {
			n++
		}
	}
	return n
}

// Last returns the most recent request for method and route
func (f *FakeAPI) Last(method, route string) (RecordedRequest, bool) {
	reqs := f.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Route == route {
			return reqs[i], true
		}
	}
	return RecordedRequest{}, false
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (f *FakeAPI) record(c *gin.Context) {
	rec := RecordedRequest{
		Method: c.Request.Method,
		Route:  c.FullPath(),
		Path:   c.Request.URL.Path,
		Header: c.Request.Header.Clone(),
	}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(32 << 20); err == nil {
			rec.Form = c.Request.MultipartForm.Value
			rec.Files = make(map[string][]string)
			for field, headers := range c.Request.MultipartForm.File {
				for _, h := range headers {
					rec.Files[field] = append(rec.Files[field], h.Filename)
				}
			}
		}
	} else if c.Request.Body != nil {
		body, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		rec.Body = body
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	c.Next()
}

func (f *FakeAPI) authorize(c *gin.Context) {
	f.mu.Lock()
	token := f.token
	f.mu.Unlock()
	if token == "" || c.FullPath() == "/api/admin/login" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.Next()
}

func (f *FakeAPI) override(c *gin.Context) {
	key := c.Request.Method + " " + c.FullPath()
	f.mu.Lock()
	queue := f.overrides[key]
	if len(queue) == 0 {
		f.mu.Unlock()
		c.Next()
		return
	}
	next := queue[0]
	f.overrides[key] = queue[1:]
	f.mu.Unlock()

	if raw, ok := next.body.(string); ok {
		c.Data(next.status, "application/json", []byte(raw))
	} else {
		c.JSON(next.status, next.body)
	}
	c.Abort()
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (f *FakeAPI) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.logins {
		if l.email == req.Email && l.password == req.Password {
			c.JSON(http.StatusOK, gin.H{"token": l.token, "username": l.username})
			return
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
}

func (f *FakeAPI) listProducts(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, nonNil(f.products))
}

func (f *FakeAPI) listStock(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, nonNil(f.stock))
}

func (f *FakeAPI) getProduct(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.productIndex(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, f.products[i])
}

func (f *FakeAPI) createProduct(c *gin.Context) {
	p := catalog.Product{ID: uuid.NewString()}
	if err := applyProductForm(c, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.Images = uploadedImages(c)
	if p.Name == "" || len(p.Images) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and at least one image are required"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append(f.products, p)
	f.writeAck(c, "Product created successfully", p)
}

func (f *FakeAPI) updateProduct(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.productIndex(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}
	p := f.products[i]
	if err := applyProductForm(c, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing []string
	if raw := c.PostForm("existingImages"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "existingImages must be a JSON array"})
			return
		}
	}
	p.Images = append(existing, uploadedImages(c)...)

	f.products[i] = p
	f.writeAck(c, "Product updated successfully", p)
}

func (f *FakeAPI) deleteProduct(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.productIndex(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}
	f.products = slices.Delete(f.products, i, i+1)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (f *FakeAPI) writeAck(c *gin.Context, msg string, p catalog.Product) {
	if f.omitWriteItem {
		c.JSON(http.StatusOK, gin.H{"message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "product": p})
}

func (f *FakeAPI) productIndex(id string) int {
	return slices.IndexFunc(f.products, func(p catalog.Product) bool { return p.ID == id })
}

func applyProductForm(c *gin.Context, p *catalog.Product) error {
	if v, ok := c.GetPostForm("name"); ok {
		p.Name = v
	}
	if v, ok := c.GetPostForm("description"); ok {
		p.Description = v
	}
	if v, ok := c.GetPostForm("details"); ok {
		p.Details = v
	}
	if v, ok := c.GetPostForm("dimension"); ok {
		p.Dimension = v
	}
	if v, ok := c.GetPostForm("sku"); ok {
		p.SKU = v
	}
	if v, ok := c.GetPostForm("amount"); ok {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid amount %q", v)
		}
		p.Amount = amount
	}
	return nil
}

func uploadedImages(c *gin.Context) []string {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	var refs []string
	for _, h := range form.File["images"] {
		refs = append(refs, "uploads/"+h.Filename)
	}
	return refs
}

func (f *FakeAPI) listOrders(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"orders": nonNil(f.orders)})
}

func (f *FakeAPI) updateOrder(c *gin.Context) {
	var req struct {
		Status trade.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"details": "invalid order status"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.orders, func(o trade.Order) bool { return o.ID == c.Param("id") })
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	f.orders[i].Status = req.Status
	c.JSON(http.StatusOK, f.orders[i])
}

func (f *FakeAPI) listDispatch(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, nonNil(f.dispatch))
}

func (f *FakeAPI) listShipments(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"shipments": nonNil(f.shipments)})
}

func (f *FakeAPI) track(c *gin.Context) {
	var req struct {
		AWBNumber string `json:"awbNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AWBNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "awbNumber is required"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	details, ok := f.tracking[req.AWBNumber]
	if !ok {
		c.JSON(http.StatusOK, gin.H{"error": "No tracking information found for " + req.AWBNumber})
		return
	}
	c.JSON(http.StatusOK, gin.H{"awbNumber": req.AWBNumber, "trackingDetails": details})
}

func (f *FakeAPI) schedulePickup(c *gin.Context) {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pickup request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pickups++
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"confirmationId": fmt.Sprintf("PRG%06d", f.pickups),
	})
}

func (f *FakeAPI) listSales(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"data": nonNil(f.sales)})
}

func (f *FakeAPI) document(c *gin.Context) {
	f.mu.Lock()
	data, ok := f.documents[c.Param("path")]
	f.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

package rental

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/models"
	"github.com/SaeedRasheed12/rent-app/internal/store"
)

// world is an in-memory store shared by listings, chats and rentals. Its
// transitions follow the same guards as the Postgres store.
type world struct {
	listings map[int64]*models.Listing
	rentals  []*models.RentalRequest
	chats    map[[2]int64]*models.Chat
	setChat  int
}

func newWorld() *world {
	return &world{
		listings: map[int64]*models.Listing{
			10: {ID: 10, OwnerID: 2, Title: "Camera"},
			11: {ID: 11, OwnerID: 2, Title: "Tripod"},
			12: {ID: 12, OwnerID: 3, Title: "Tent"},
		},
		chats: map[[2]int64]*models.Chat{},
	}
}

func (w *world) GetListing(_ context.Context, id int64) (*models.Listing, error) {
	l, ok := w.listings[id]
	if !ok {
		return nil, apperr.NotFound("listing")
	}
	return l, nil
}

func (w *world) FindOrCreate(_ context.Context, a, b int64, listingID *int64) (*models.Chat, error) {
	key := [2]int64{min(a, b), max(a, b)}
	if c, ok := w.chats[key]; ok {
		return c, nil
	}
	c := &models.Chat{ID: int64(len(w.chats) + 100), User1ID: a, User2ID: b, ListingID: listingID}
	w.chats[key] = c
	return c, nil
}

func (w *world) GetRental(_ context.Context, id int64) (*models.RentalRequest, error) {
	for _, r := range w.rentals {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("rental request")
}

func (w *world) HasActiveRental(_ context.Context, renterID int64) (bool, error) {
	for _, r := range w.rentals {
		if r.RenterID == renterID && r.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (w *world) InsertRental(ctx context.Context, r *models.RentalRequest, exclusive bool) (*models.RentalRequest, error) {
	if exclusive {
		if active, _ := w.HasActiveRental(ctx, r.RenterID); active {
			return nil, store.ErrActiveRental
		}
	}
	cp := *r
	cp.ID = int64(len(w.rentals) + 1)
	cp.Status = models.RentalPending
	cp.CreatedAt = time.Now()
	w.rentals = append(w.rentals, &cp)
	out := cp
	return &out, nil
}

func (w *world) LatestRental(_ context.Context, listingID, renterID int64) (*models.RentalRequest, error) {
	for i := len(w.rentals) - 1; i >= 0; i-- {
		if r := w.rentals[i]; r.ListingID == listingID && r.RenterID == renterID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("rental request")
}

func (w *world) views(keep func(*models.RentalRequest) bool) []models.RentalView {
	out := []models.RentalView{}
	for _, r := range w.rentals {
		if keep(r) {
			out = append(out, models.RentalView{RentalRequest: *r, ListingTitle: w.listings[r.ListingID].Title})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (w *world) RentalsByOwner(_ context.Context, ownerID int64) ([]models.RentalView, error) {
	return w.views(func(r *models.RentalRequest) bool { return r.OwnerID == ownerID }), nil
}

func (w *world) RentalsByRenter(_ context.Context, renterID int64) ([]models.RentalView, error) {
	return w.views(func(r *models.RentalRequest) bool { return r.RenterID == renterID }), nil
}

func (w *world) SetRentalChat(_ context.Context, requestID, chatID int64) error {
	for _, r := range w.rentals {
		if r.ID == requestID && r.ChatID == nil {
			r.ChatID = &chatID
			w.setChat++
		}
	}
	return nil
}

func (w *world) ApplyTransition(_ context.Context, t models.RentalTransition) (*models.RentalRequest, error) {
	var r *models.RentalRequest
	for _, cand := range w.rentals {
		if cand.ID == t.RequestID {
			r = cand
		}
	}
	if r == nil {
		return nil, apperr.NotFound("rental request")
	}
	if r.Status != t.From {
		return nil, apperr.Conflict("rental request was changed by another action")
	}
	if t.To.Active() {
		for _, o := range w.rentals {
			if o.ID != r.ID && o.RenterID == r.RenterID && o.Status.Active() {
				return nil, apperr.Conflict("Renter already has an active rental")
			}
		}
	}
	r.Status = t.To
	if t.Pickup.Address != nil {
		r.OwnerPickupAddress = *t.Pickup.Address
	}
	if t.Pickup.Note != nil {
		r.OwnerPickupNote = *t.Pickup.Note
	}
	if t.Payment.Account != nil {
		r.OwnerPaymentAccount = *t.Payment.Account
	}

	l := w.listings[r.ListingID]
	switch t.To {
	case models.RentalAccepted:
		l.IsRented = true
	case models.RentalReturned:
		l.IsRented = false
	case models.RentalDeclined:
		busy := false
		for _, o := range w.rentals {
			if o.ID != r.ID && o.ListingID == r.ListingID && o.Status.Active() {
				busy = true
			}
		}
		if !busy {
			l.IsRented = false
		}
	}
	cp := *r
	return &cp, nil
}

type recorder struct{ events []string }

func (r *recorder) Notify(userID int64, typ string, _ any) {
	r.events = append(r.events, typ)
}

func newService() (*Service, *world, *recorder) {
	w, rec := newWorld(), &recorder{}
	svc := NewService(w, w, w, rec)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, w, rec
}

func request(listingID, renterID, ownerID int64) models.NewRental {
	return models.NewRental{
		ListingID: listingID, RenterID: renterID, OwnerID: ownerID,
		StartDate: "2026-03-02", EndDate: "2026-03-04",
		TotalDays: 3, TotalPrice: 4500, Pickup: models.PickupSelf,
	}
}

func safeRequest(listingID, renterID, ownerID int64) models.NewRental {
	in := request(listingID, renterID, ownerID)
	in.CNICImage = "https://blob.example/cnic.jpg"
	in.SelfieImage = "https://blob.example/selfie.jpg"
	in.RulesAgreed = true
	return in
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *models.NewRental)
		wantKind apperr.Kind
	}{
		{"missing renter", func(in *models.NewRental) { in.RenterID = 0 }, apperr.KindValidation},
		{"own listing", func(in *models.NewRental) { in.RenterID = 2 }, apperr.KindValidation},
		{"bad pickup", func(in *models.NewRental) { in.Pickup = "drone" }, apperr.KindValidation},
		{"bad date", func(in *models.NewRental) { in.StartDate = "02/03/2026" }, apperr.KindValidation},
		{"end before start", func(in *models.NewRental) { in.EndDate = "2026-03-01" }, apperr.KindValidation},
		{"zero days", func(in *models.NewRental) { in.TotalDays = 0 }, apperr.KindValidation},
		{"negative price", func(in *models.NewRental) { in.TotalPrice = -1 }, apperr.KindValidation},
		{"wrong owner", func(in *models.NewRental) { in.OwnerID = 3 }, apperr.KindValidation},
		{"unknown listing", func(in *models.NewRental) { in.ListingID = 99 }, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, w, _ := newService()
			in := request(10, 1, 2)
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("Create() kind = %v, want %v (err %v)", apperr.KindOf(err), tt.wantKind, err)
			}
			if len(w.rentals) != 0 || len(w.chats) != 0 {
				t.Errorf("Create() persisted %d rentals, %d chats; want none", len(w.rentals), len(w.chats))
			}
		})
	}
}

func TestCreate_PendingWithChat(t *testing.T) {
	svc, w, rec := newService()
	ctx := context.Background()

	r, err := svc.Create(ctx, request(10, 1, 2))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if r.Status != models.RentalPending {
		t.Errorf("Create() status = %v, want pending", r.Status)
	}
	if r.ChatID == nil {
		t.Fatal("Create() chat_id = nil")
	}
	if w.listings[10].IsRented {
		t.Error("Create() hid the listing")
	}

	// A second request from the same pair reuses the chat.
	r2, _ := svc.Create(ctx, request(11, 1, 2))
	if *r2.ChatID != *r.ChatID || len(w.chats) != 1 {
		t.Errorf("second Create() chat = %d, want %d", *r2.ChatID, *r.ChatID)
	}
	if len(rec.events) != 2 || rec.events[0] != "rental.created" {
		t.Errorf("events = %v, want two rental.created", rec.events)
	}
}

func TestLifecycle_FeedVisibility(t *testing.T) {
	svc, w, rec := newService()
	ctx := context.Background()
	r, _ := svc.Create(ctx, request(10, 1, 2))

	addr := "Shop 4, Saddar"
	got, err := svc.Decide(ctx, models.Decision{
		RequestID:     r.ID,
		Status:        models.RentalAccepted,
		PickupDetails: models.PickupDetails{Address: &addr},
	})
	if err != nil {
		t.Fatalf("Decide(accepted) error = %v", err)
	}
	if !w.listings[10].IsRented {
		t.Error("accepted listing still visible")
	}
	if got.OwnerPickupAddress != addr {
		t.Errorf("Decide() pickup address = %q, want %q", got.OwnerPickupAddress, addr)
	}

	got, err = svc.Return(ctx, r.ID)
	if err != nil {
		t.Fatalf("Return() error = %v", err)
	}
	if got.Status != models.RentalReturned {
		t.Errorf("Return() status = %v, want returned", got.Status)
	}
	if w.listings[10].IsRented {
		t.Error("returned listing still hidden")
	}

	want := []string{"rental.created", "rental.decided", "rental.returned"}
	if strings.Join(rec.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     models.RentalStatus
		decide   models.RentalStatus
		wantKind apperr.Kind
		wantOK   bool
	}{
		{"pending to accepted", models.RentalPending, models.RentalAccepted, 0, true},
		{"pending to declined", models.RentalPending, models.RentalDeclined, 0, true},
		{"accepted to declined", models.RentalAccepted, models.RentalDeclined, 0, true},
		{"declined is final", models.RentalDeclined, models.RentalAccepted, apperr.KindConflict, false},
		{"returned is final", models.RentalReturned, models.RentalAccepted, apperr.KindConflict, false},
		{"no decision to returned", models.RentalPending, models.RentalReturned, apperr.KindValidation, false},
		{"no decision to ongoing", models.RentalPending, models.RentalOngoing, apperr.KindValidation, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, w, _ := newService()
			r, _ := svc.Create(context.Background(), request(10, 1, 2))
			w.rentals[0].Status = tt.from

			_, err := svc.Decide(context.Background(), models.Decision{RequestID: r.ID, Status: tt.decide})
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Decide() error = %v", err)
				}
				if w.rentals[0].Status != tt.decide {
					t.Errorf("status = %v, want %v", w.rentals[0].Status, tt.decide)
				}
				return
			}
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("Decide() kind = %v, want %v", apperr.KindOf(err), tt.wantKind)
			}
			if w.rentals[0].Status != tt.from {
				t.Errorf("status changed to %v on failure", w.rentals[0].Status)
			}
		})
	}
}

func TestReturn_Guards(t *testing.T) {
	tests := []struct {
		from   models.RentalStatus
		wantOK bool
	}{
		{models.RentalAccepted, true},
		{models.RentalOngoing, true},
		{models.RentalPending, false},
		{models.RentalDeclined, false},
		{models.RentalReturned, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			svc, w, _ := newService()
			r, _ := svc.Create(context.Background(), request(10, 1, 2))
			w.rentals[0].Status = tt.from
			w.listings[10].IsRented = true

			_, err := svc.Return(context.Background(), r.ID)
			if (err == nil) != tt.wantOK {
				t.Fatalf("Return() error = %v, wantOK %v", err, tt.wantOK)
			}
			if !tt.wantOK && apperr.KindOf(err) != apperr.KindConflict {
				t.Errorf("Return() kind = %v, want conflict", apperr.KindOf(err))
			}
			if w.listings[10].IsRented == tt.wantOK {
				t.Errorf("listing is_rented = %v after Return(), wantOK %v", w.listings[10].IsRented, tt.wantOK)
			}
		})
	}

	svc, _, _ := newService()
	if _, err := svc.Return(context.Background(), 42); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Return(unknown) kind = %v, want not_found", apperr.KindOf(err))
	}
}

func TestDecline_KeepsListingHeldByOtherRequest(t *testing.T) {
	svc, w, _ := newService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, request(10, 1, 2))
	b, _ := svc.Create(ctx, request(10, 4, 2))

	if _, err := svc.Decide(ctx, models.Decision{RequestID: a.ID, Status: models.RentalAccepted}); err != nil {
		t.Fatalf("Decide(a accepted) error = %v", err)
	}
	if _, err := svc.Decide(ctx, models.Decision{RequestID: b.ID, Status: models.RentalDeclined}); err != nil {
		t.Fatalf("Decide(b declined) error = %v", err)
	}
	if !w.listings[10].IsRented {
		t.Error("declining b released a listing that a still holds")
	}
}

func TestAccept_RenterAlreadyActive(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, request(10, 1, 2))
	b, _ := svc.Create(ctx, request(12, 1, 3))

	if _, err := svc.Decide(ctx, models.Decision{RequestID: a.ID, Status: models.RentalAccepted}); err != nil {
		t.Fatalf("Decide(a) error = %v", err)
	}
	if _, err := svc.Decide(ctx, models.Decision{RequestID: b.ID, Status: models.RentalAccepted}); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("Decide(b) kind = %v, want conflict", apperr.KindOf(err))
	}
}

func TestCreateSafe(t *testing.T) {
	svc, w, _ := newService()
	ctx := context.Background()

	r, err := svc.CreateSafe(ctx, safeRequest(10, 1, 2))
	if err != nil {
		t.Fatalf("CreateSafe() error = %v", err)
	}
	if !r.RenterVerified || !r.RulesAgreed || r.AgreementSignedAt == nil {
		t.Errorf("CreateSafe() = %+v, want verified with agreement time", r)
	}
	if r.ChatID == nil {
		t.Error("CreateSafe() chat_id = nil")
	}

	// Pending requests do not block.
	if _, err := svc.CreateSafe(ctx, safeRequest(12, 1, 3)); err != nil {
		t.Fatalf("CreateSafe() with pending request error = %v", err)
	}

	if _, err := svc.Decide(ctx, models.Decision{RequestID: r.ID, Status: models.RentalAccepted}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	chats := len(w.chats)
	_, err = svc.CreateSafe(ctx, safeRequest(11, 1, 2))
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("CreateSafe() while active kind = %v, want conflict", apperr.KindOf(err))
	}
	if apperr.Message(err) != "You already have an active rental. Return your current item first." {
		t.Errorf("CreateSafe() message = %q", apperr.Message(err))
	}
	if len(w.chats) != chats {
		t.Error("refused CreateSafe() created a chat")
	}

	// Plain create is not admission-controlled.
	if _, err := svc.Create(ctx, request(11, 1, 2)); err != nil {
		t.Errorf("Create() while active error = %v", err)
	}

	if _, err := svc.Return(ctx, r.ID); err != nil {
		t.Fatalf("Return() error = %v", err)
	}
	if _, err := svc.CreateSafe(ctx, safeRequest(11, 1, 2)); err != nil {
		t.Errorf("CreateSafe() after return error = %v", err)
	}
}

func TestCreateSafe_RequiresVerification(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *models.NewRental)
	}{
		{"no cnic", func(in *models.NewRental) { in.CNICImage = "" }},
		{"no selfie", func(in *models.NewRental) { in.SelfieImage = " " }},
		{"rules not agreed", func(in *models.NewRental) { in.RulesAgreed = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService()
			in := safeRequest(10, 1, 2)
			tt.mutate(&in)
			if _, err := svc.CreateSafe(context.Background(), in); apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("CreateSafe() kind = %v, want validation", apperr.KindOf(err))
			}
		})
	}
}

func TestLatest(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	got, err := svc.Latest(ctx, 10, 1)
	if err != nil || got != nil {
		t.Fatalf("Latest() = %v, %v; want nil, nil", got, err)
	}
	_, _ = svc.Create(ctx, request(10, 1, 2))
	second, _ := svc.Create(ctx, request(10, 1, 2))
	got, _ = svc.Latest(ctx, 10, 1)
	if got == nil || got.ID != second.ID {
		t.Errorf("Latest() = %+v, want request %d", got, second.ID)
	}
}

func TestDashboards_BackfillChat(t *testing.T) {
	svc, w, _ := newService()
	ctx := context.Background()
	_, _ = svc.Create(ctx, request(10, 1, 2))
	w.rentals = append(w.rentals, &models.RentalRequest{ID: 2, ListingID: 11, RenterID: 5, OwnerID: 2, Status: models.RentalPending})

	views, err := svc.OwnerRequests(ctx, 2)
	if err != nil {
		t.Fatalf("OwnerRequests() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("OwnerRequests() = %d rows, want 2", len(views))
	}
	for _, v := range views {
		if v.ChatID == nil {
			t.Errorf("row %d has no chat_id", v.ID)
		}
	}
	if w.setChat != 1 || w.rentals[1].ChatID == nil {
		t.Errorf("backfilled %d chats, want 1", w.setChat)
	}

	mine, _ := svc.RenterRequests(ctx, 1)
	if len(mine) != 1 || mine[0].ListingTitle != "Camera" {
		t.Errorf("RenterRequests() = %+v, want the camera request", mine)
	}
}

func TestHandler_Statuses(t *testing.T) {
	svc, _, _ := newService()
	_, _ = svc.Create(context.Background(), request(10, 1, 2))
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Post("/rent/create", h.Create)
	r.Post("/rent/create_safe", h.CreateSafe)
	r.Get("/rent/status/{listing_id}/{user_id}", h.Status)
	r.Post("/rent/check_request", h.CheckRequest)
	r.Post("/rent/decision", h.Decision)
	r.Post("/rent/return", h.Return)

	tests := []struct {
		method, path, body string
		want               int
		contains           string
	}{
		{http.MethodGet, "/rent/status/10/1", ``, http.StatusOK, `"exists":true`},
		{http.MethodGet, "/rent/status/11/1", ``, http.StatusOK, `"exists":false`},
		{http.MethodPost, "/rent/check_request", `{"listing_id":10,"renter_id":1}`, http.StatusOK, `"status":"pending"`},
		{http.MethodPost, "/rent/return", `{"request_id":1}`, http.StatusConflict, `"code":"conflict"`},
		{http.MethodPost, "/rent/return", `{"request_id":77}`, http.StatusNotFound, `"code":"not_found"`},
		{http.MethodPost, "/rent/decision", `{"request_id":1,"status":"maybe"}`, http.StatusBadRequest, `"success":false`},
		{http.MethodPost, "/rent/decision", `{"request_id":1,"status":"accepted","owner_pickup_note":"ring twice"}`, http.StatusOK, `"owner_pickup_note":"ring twice"`},
		{http.MethodPost, "/rent/create_safe", `{"listing_id":11,"renter_id":1,"owner_id":2,"start_date":"2026-03-02","end_date":"2026-03-03","total_days":2,"total_price":100,"pickup_method":"self_pick","cnic_image":"c","selfie_image":"s","rules_agreed":true}`, http.StatusConflict, `active rental`},
		{http.MethodPost, "/rent/create", `{"listing_id":12,"renter_id":4,"owner_id":3,"start_date":"2026-03-02","end_date":"2026-03-03","total_days":2,"total_price":100,"pickup_method":"rider_delivery"}`, http.StatusCreated, `"chat_id"`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s %s status = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			continue
		}
		if !strings.Contains(rec.Body.String(), tt.contains) {
			t.Errorf("%s %s body = %s, want it to contain %s", tt.method, tt.path, rec.Body.String(), tt.contains)
		}
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesusllicag/gesa-sub000/internal/billing"
	"github.com/jesusllicag/gesa-sub000/internal/db"
	"github.com/jesusllicag/gesa-sub000/internal/gates/pasarela"
	"github.com/jesusllicag/gesa-sub000/internal/notify"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type fakeGateway struct {
	status string
}

func (g *fakeGateway) Charge(ctx context.Context, req *pasarela.ChargeRequest) (*pasarela.ChargeResult, error) {
	return &pasarela.ChargeResult{ID: "ch_http_1", Status: g.status, StatusDetail: g.status}, nil
}

func setupTestServer(t *testing.T) (*Server, *db.Repository, *fakeGateway) {
	t.Helper()

	repo, err := db.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	setupTestData(t, repo)

	gw := &fakeGateway{status: pasarela.StatusApproved}
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := billing.NewEngine(repo, gw, notify.Noop{}, clock)

	return NewServer("127.0.0.1:0", engine, repo, clock), repo, gw
}

func setupTestData(t *testing.T, repo *db.Repository) {
	t.Helper()

	repo.DB().Create(&db.Cliente{ID: 1, RazonSocial: "ACME SAC", Email: "acme@test.test"})
	repo.DB().Create(&db.Cliente{ID: 2, RazonSocial: "Otro SRL", Email: "otro@test.test"})
	repo.DB().Create(&db.TipoInstancia{
		ID:         1,
		Nombre:     "t2.micro",
		PrecioHora: decimal.RequireFromString("0.05"),
		MemoriaGb:  1,
		Vcpus:      1,
	})

	clienteID := uint(1)
	repo.DB().Create(&db.Servidor{
		ID:              1,
		Nombre:          "web-01",
		ClienteID:       &clienteID,
		TipoInstanciaID: 1,
		RamGb:           2,
		DiscoGb:         50,
		TipoDisco:       "ssd",
		TipoConexion:    "publica",
		Estado:          billing.EstadoStopped.String(),
		CostoDiario:     decimal.RequireFromString("2.00"),
	})
}

func doRequest(t *testing.T, s *Server, method, path string, clienteID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if clienteID != "" {
		req.Header.Set("X-Cliente-ID", clienteID)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestStartStopViaHTTP(t *testing.T) {
	s, _, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/servers/1/start", "1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// Ya está corriendo: precondición rechazada, no un crash.
	rec = doRequest(t, s, http.MethodPost, "/servers/1/start", "1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start: got %d, want 409", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != billing.ErrEstadoInvalido {
		t.Errorf("second start code = %s, want %s", body.Code, billing.ErrEstadoInvalido)
	}

	rec = doRequest(t, s, http.MethodPost, "/servers/1/stop", "1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestOwnershipUniforme(t *testing.T) {
	s, _, _ := setupTestServer(t)

	tests := []struct {
		name    string
		cliente string
		want    int
	}{
		{name: "otro cliente ve 404", cliente: "2", want: http.StatusNotFound},
		{name: "id inexistente ve 404", cliente: "1", want: http.StatusNotFound},
	}

	rec := doRequest(t, s, http.MethodPost, "/servers/1/start", tests[0].cliente, nil)
	if rec.Code != tests[0].want {
		t.Errorf("%s: got %d, want %d", tests[0].name, rec.Code, tests[0].want)
	}

	rec = doRequest(t, s, http.MethodPost, "/servers/999/start", tests[1].cliente, nil)
	if rec.Code != tests[1].want {
		t.Errorf("%s: got %d, want %d", tests[1].name, rec.Code, tests[1].want)
	}
}

func TestFaltaIdentidadCliente(t *testing.T) {
	s, _, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/servers/1/start", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
}

func TestApproveYRejectViaHTTP(t *testing.T) {
	s, repo, _ := setupTestServer(t)

	clienteID := uint(1)
	token := "tok-http-1"
	repo.DB().Create(&db.Servidor{
		ID:              7,
		Nombre:          "nuevo-01",
		ClienteID:       &clienteID,
		TipoInstanciaID: 1,
		RamGb:           2,
		DiscoGb:         50,
		TipoDisco:       "ssd",
		TipoConexion:    "publica",
		Estado:          billing.EstadoPendienteAprobacion.String(),
		CostoDiario:     decimal.RequireFromString("2.00"),
		TokenAprobacion: &token,
	})

	rec := doRequest(t, s, http.MethodPost, "/servers/"+token+"/approve", "",
		map[string]interface{}{"medio_pago": "transferencia"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// El token es de un solo uso.
	rec = doRequest(t, s, http.MethodPost, "/servers/"+token+"/approve", "",
		map[string]interface{}{"medio_pago": "transferencia"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("reused token: got %d, want 404", rec.Code)
	}

	token2 := "tok-http-2"
	repo.DB().Create(&db.Servidor{
		ID:              8,
		Nombre:          "nuevo-02",
		ClienteID:       &clienteID,
		TipoInstanciaID: 1,
		RamGb:           2,
		DiscoGb:         50,
		TipoDisco:       "ssd",
		TipoConexion:    "publica",
		Estado:          billing.EstadoPendienteAprobacion.String(),
		CostoDiario:     decimal.RequireFromString("2.00"),
		TokenAprobacion: &token2,
	})

	rec = doRequest(t, s, http.MethodPost, "/servers/"+token2+"/reject", "", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestPagarDeudaSinDeudaMinima(t *testing.T) {
	s, _, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/servers/1/pagar-deuda", "1",
		map[string]string{"token": "tok_visa", "payment_method_id": "visa"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != billing.ErrDeudaInsuficiente {
		t.Errorf("code = %s, want %s", body.Code, billing.ErrDeudaInsuficiente)
	}
}

func TestPagoRechazadoDevuelve402(t *testing.T) {
	s, repo, gw := setupTestServer(t)
	gw.status = "rejected"

	repo.DB().Model(&db.Servidor{ID: 1}).Update("active_ms", 5*billing.MsPorDia)

	rec := doRequest(t, s, http.MethodPost, "/servers/1/pagar-deuda", "1",
		map[string]string{"token": "tok_visa", "payment_method_id": "visa"})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("got %d, want 402: %s", rec.Code, rec.Body.String())
	}
}

func TestValidarPagoAjeno404(t *testing.T) {
	s, repo, _ := setupTestServer(t)

	pago := &db.PagoMensual{
		ServidorID: 1,
		Anio:       2026,
		Mes:        3,
		Monto:      decimal.RequireFromString("20.00"),
		Estado:     billing.PagoPendiente.String(),
		MedioPago:  billing.MedioTransferencia.String(),
	}
	repo.DB().Create(pago)

	rec := doRequest(t, s, http.MethodPost, "/admin/servers/999/pagos/1/validar", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestMensualidadViaHTTP(t *testing.T) {
	s, repo, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/servers/1/pagar-mensualidad", "1",
		map[string]string{"medio_pago": "tarjeta", "token": "tok_visa", "payment_method_id": "visa"})
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var view pagoView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode pago: %v", err)
	}
	if view.Monto != "60.00" {
		t.Errorf("monto = %s, want 60.00", view.Monto)
	}
	if view.Estado != billing.PagoPagado.String() {
		t.Errorf("estado = %s, want pagado", view.Estado)
	}

	var sv db.Servidor
	repo.DB().First(&sv, 1)
	if sv.BilledActiveMs != 30*billing.MsPorDia {
		t.Errorf("billed_active_ms = %d, want %d", sv.BilledActiveMs, 30*billing.MsPorDia)
	}
}

func TestCotizacion(t *testing.T) {
	s, _, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/cotizacion?tipo=1&disco_gb=100&tipo_disco=ssd&conexion=publica", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["costo_diario"] != "1.4667" {
		t.Errorf("costo_diario = %s, want 1.4667", body["costo_diario"])
	}
	if body["costo_mensual"] != "44.00" {
		t.Errorf("costo_mensual = %s, want 44.00", body["costo_mensual"])
	}
}

func TestProvisionViaHTTP(t *testing.T) {
	s, _, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/admin/servers", "", map[string]interface{}{
		"cliente_id":        1,
		"tipo_instancia_id": 1,
		"nombre":            "db-01",
		"ram_gb":            4,
		"disco_gb":          100,
		"tipo_disco":        "hdd",
		"tipo_conexion":     "privada",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var view struct {
		Estado          string `json:"estado"`
		TokenAprobacion string `json:"token_aprobacion"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if view.Estado != billing.EstadoPendienteAprobacion.String() {
		t.Errorf("estado = %s, want pendiente_aprobacion", view.Estado)
	}
	if view.TokenAprobacion == "" {
		t.Error("token_aprobacion vacío")
	}
}

/*
handlers.go - HTTP API handlers for the back-office service

PURPOSE:
  Exposes documents, spreadsheet import, attendance, and the catalog via
  REST. Handles HTTP request/response, JSON serialization, and delegates
  to domain logic.

ENDPOINTS:
  Documents:
    GET    /api/cotizaciones               List quotations
    POST   /api/cotizaciones               Create quotation
    GET    /api/cotizaciones/{id}          Get quotation with details
    PUT    /api/cotizaciones/{id}          Update header + reconcile details
    DELETE /api/cotizaciones/{id}          Delete quotation (cascades)
    POST   /api/cotizaciones/importar      Import quotation from xlsx
    (the same CRUD set under /api/ordenes-compra for purchase orders)

  Attendance:
    POST   /api/asistencias/lote           Apply attendance batch
    GET    /api/empleados/{id}/asistencias Stored records for one employee

  Catalog:
    GET/POST /api/productos
    GET/POST /api/empleados

REQUEST FLOW:
  1. Decode and validate the body (validator tags)
  2. Call domain logic (documents.Service, attendance.Upserter, catalog)
  3. Serialize response
  4. Map domain errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (sequence exhausted, stale detail line)
  - 422: Import parsed but produced no usable rows
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anta/backoffice/attendance"
	"github.com/anta/backoffice/catalog"
	"github.com/anta/backoffice/documents"
	"github.com/anta/backoffice/spreadsheet"
	"github.com/anta/backoffice/store/sqlite"
)

// maxImportBytes caps uploaded workbook size.
const maxImportBytes = 8 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Documents  *documents.Service
	Attendance *attendance.Upserter

	validate *validator.Validate
	log      *logrus.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:      store,
		Documents:  documents.NewService(store.Documents(), log),
		Attendance: attendance.NewUpserter(store.Attendance()),
		validate:   validator.New(),
		log:        log,
	}
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// ListDocuments returns all documents of one type, newest first.
func (h *Handler) ListDocuments(docType documents.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.Documents.List(r.Context(), docType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
			return
		}

		dtos := make([]DocumentDTO, len(docs))
		for i, d := range docs {
			dtos[i] = toDocumentDTO(d, nil)
		}
		writeJSON(w, http.StatusOK, dtos)
	}
}

// GetDocument returns a single document with its detail lines.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	doc, lines, err := h.Documents.Get(r.Context(), id)
	if err != nil {
		h.writeDocumentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(*doc, lines))
}

// CreateDocument creates a document of the given type, allocating the
// next number in its series.
func (h *Handler) CreateDocument(docType documents.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decodeDocumentRequest(w, r)
		if !ok {
			return
		}

		doc, lines, err := h.Documents.Create(r.Context(), documents.NewDocument{
			Type:        docType,
			Client:      req.Cliente,
			Description: req.Descripcion,
			Details:     toDetailInputs(req.Detalles),
		})
		if err != nil {
			h.writeDocumentError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDocumentDTO(*doc, lines))
	}
}

// UpdateDocument updates a document's header and reconciles its detail
// set against the incoming lines.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeDocumentRequest(w, r)
	if !ok {
		return
	}

	doc, lines, err := h.Documents.Update(r.Context(), id, documents.UpdateDocument{
		Client:      req.Cliente,
		Description: req.Descripcion,
		Details:     toDetailInputs(req.Detalles),
	})
	if err != nil {
		h.writeDocumentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(*doc, lines))
}

// DeleteDocument removes a document and its detail lines.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.Documents.Delete(r.Context(), id); err != nil {
		h.writeDocumentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decodeDocumentRequest(w http.ResponseWriter, r *http.Request) (DocumentRequest, bool) {
	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return req, false
	}
	return req, true
}

// =============================================================================
// IMPORT HANDLER
// =============================================================================

// ImportQuotation accepts a multipart xlsx upload in the legacy template
// shape (client in B1, header in row 3, data from row 4) and creates a
// quotation from the rows that survive normalization. Bad rows are
// skipped and reported; zero good rows fails the whole import.
func (h *Handler) ImportQuotation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}

	file, header, err := r.FormFile("archivo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field 'archivo'", err)
		return
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx", ".xls":
	default:
		writeError(w, http.StatusBadRequest, "Unsupported file type (use .xlsx)", nil)
		return
	}

	wb, err := spreadsheet.ParseWorkbook(file)
	if err != nil {
		h.writeImportError(w, err)
		return
	}

	products, err := h.Store.Catalog().ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load product catalog", err)
		return
	}

	lines, rowErrs := spreadsheet.Normalize(wb, catalog.NewProductIndex(products))
	errores := make([]string, len(rowErrs))
	for i, re := range rowErrs {
		errores[i] = re.Error()
	}

	if len(lines) == 0 {
		h.log.WithError(spreadsheet.ErrNoValidRows).WithField("skipped", len(rowErrs)).
			Warn("spreadsheet import rejected")
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   spreadsheet.ErrNoValidRows.Error(),
			Details: errores,
		})
		return
	}

	details := make([]documents.DetailInput, len(lines))
	for i, l := range lines {
		details[i] = documents.DetailInput{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}

	doc, detailLines, err := h.Documents.Create(r.Context(), documents.NewDocument{
		Type:    documents.TypeQuotation,
		Client:  wb.Client,
		Details: details,
	})
	if err != nil {
		h.writeDocumentError(w, err)
		return
	}

	dto := toDocumentDTO(*doc, detailLines)
	receipt := uuid.NewString()
	h.log.WithFields(logrus.Fields{
		"receipt":  receipt,
		"document": doc.Number,
		"imported": len(lines),
		"skipped":  len(rowErrs),
	}).Info("spreadsheet import completed")

	writeJSON(w, http.StatusCreated, ImportResponse{
		Recibo:     receipt,
		Cliente:    wb.Client,
		Importadas: len(lines),
		Omitidas:   len(rowErrs),
		Errores:    errores,
		Documento:  &dto,
	})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ApplyAttendanceBatch applies a batch of attendance cells atomically and
// reports how many records were created versus updated.
func (h *Handler) ApplyAttendanceBatch(w http.ResponseWriter, r *http.Request) {
	var req AttendanceBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	cells, err := toAttendanceCells(req.Empleados)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attendance date", err)
		return
	}

	result, err := h.Attendance.Apply(r.Context(), cells)
	if err != nil {
		if attendance.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid attendance batch", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply attendance batch", err)
		return
	}

	writeJSON(w, http.StatusOK, AttendanceBatchResponse{
		Created: result.Created,
		Updated: result.Updated,
	})
}

// ListEmployeeAttendance returns stored records for one employee, with
// optional desde/hasta date bounds.
func (h *Handler) ListEmployeeAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	from, ok := dateQuery(w, r, "desde", time.Time{})
	if !ok {
		return
	}
	to, ok := dateQuery(w, r, "hasta", time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
	if !ok {
		return
	}

	if _, err := h.Store.Catalog().GetEmployee(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrEmployeeNotFound) {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}

	records, err := h.Store.RecordsByEmployee(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}

	dtos := make([]AttendanceRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = AttendanceRecordDTO{
			FechaAsistio: rec.Date.Format(attendance.DateLayout),
			Estado:       string(rec.State),
			Nota:         rec.Note,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListProducts returns the product catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.Catalog().ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	product := catalog.Product{
		Name:       req.Nombre,
		Code:       req.Codigo,
		CategoryID: req.FkIdCategoria,
	}
	if err := h.Store.Catalog().CreateProduct(r.Context(), &product); err != nil {
		if errors.Is(err, catalog.ErrDuplicateProduct) {
			writeError(w, http.StatusConflict, "Product name or code already exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, ProductDTO{
		ID:            product.ID,
		Nombre:        product.Name,
		Codigo:        product.Code,
		FkIdCategoria: product.CategoryID,
	})
}

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.Catalog().ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTOs(employees))
}

// CreateEmployee adds an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	employee := catalog.Employee{Name: req.Nombre, Position: req.Cargo}
	if err := h.Store.Catalog().CreateEmployee(r.Context(), &employee); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, EmployeeDTO{
		ID:     employee.ID,
		Nombre: employee.Name,
		Cargo:  employee.Position,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeDocumentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		writeError(w, http.StatusNotFound, "Document not found", nil)
	case documents.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid document", err)
	case documents.IsConflict(err):
		writeError(w, http.StatusConflict, "Document conflict", err)
	default:
		h.log.WithError(err).Error("document operation failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func (h *Handler) writeImportError(w http.ResponseWriter, err error) {
	var headerErr *spreadsheet.HeaderError
	switch {
	case errors.As(err, &headerErr),
		errors.Is(err, spreadsheet.ErrMissingClient),
		errors.Is(err, spreadsheet.ErrEmptyWorkbook):
		writeError(w, http.StatusBadRequest, "Workbook does not match the template", err)
	default:
		writeError(w, http.StatusBadRequest, "Unable to read workbook", err)
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid id %q", raw), nil)
		return 0, false
	}
	return id, true
}

func dateQuery(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	t, err := time.Parse(attendance.DateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s date (use YYYY-MM-DD)", name), err)
		return time.Time{}, false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

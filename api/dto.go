/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow
  the wire contract of the legacy front end, which is Spanish throughout
  (cliente, detalles, fecha_asistio, ...). These types decouple the
  internal domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Structural checks live in the validator struct tags and run in the
  handlers. Everything the tags cannot express (decimal sign, product
  existence, attendance state enum) is enforced by the domain services.

SEE ALSO:
  - handlers.go: Uses these types
  - documents/types.go, attendance/attendance.go: domain counterparts
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anta/backoffice/attendance"
	"github.com/anta/backoffice/catalog"
	"github.com/anta/backoffice/documents"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DocumentRequest is the create/update body for quotations and purchase
// orders.
type DocumentRequest struct {
	Cliente     string          `json:"cliente" validate:"required"`
	Descripcion string          `json:"descripcion"`
	Detalles    []DetailRequest `json:"detalles" validate:"required,min=1,dive"`
}

// DetailRequest is one incoming detail line. A non-zero IdDetalle targets
// an existing line on update; zero means insert.
type DetailRequest struct {
	Cantidad       int64           `json:"cantidad" validate:"required,min=1"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Marca          string          `json:"marca"`
	FkIdProducto   int64           `json:"fk_id_producto" validate:"required,min=1"`
	IdDetalle      int64           `json:"iddetalle"`
}

// DocumentDTO represents a persisted document with its detail lines and
// recomputed total.
type DocumentDTO struct {
	ID          int64           `json:"id"`
	Tipo        string          `json:"tipo"`
	Numero      string          `json:"numero"`
	Cliente     string          `json:"cliente"`
	Descripcion string          `json:"descripcion,omitempty"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   string          `json:"created_at"`
	Detalles    []DetailDTO     `json:"detalles"`
}

// DetailDTO represents one persisted detail line.
type DetailDTO struct {
	IdDetalle      int64           `json:"iddetalle"`
	FkIdProducto   int64           `json:"fk_id_producto"`
	Cantidad       int64           `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Marca          string          `json:"marca,omitempty"`
}

// ImportResponse reports what a spreadsheet import did. Errores carries
// one human-readable message per skipped row; callers must surface it
// even when the import succeeds.
type ImportResponse struct {
	Recibo     string       `json:"recibo"`
	Cliente    string       `json:"cliente"`
	Importadas int          `json:"importadas"`
	Omitidas   int          `json:"omitidas"`
	Errores    []string     `json:"errores"`
	Documento  *DocumentDTO `json:"documento,omitempty"`
}

// AttendanceBatchRequest applies a batch of attendance cells atomically.
type AttendanceBatchRequest struct {
	Empleados []AttendanceCellRequest `json:"empleados" validate:"required,min=1,dive"`
}

// AttendanceCellRequest is one (employee, date, state) cell.
type AttendanceCellRequest struct {
	FechaAsistio  string `json:"fecha_asistio" validate:"required"`
	Estado        string `json:"estado" validate:"required"`
	FkIdEmpleados int64  `json:"fk_idempleados" validate:"required,min=1"`
	Nota          string `json:"nota"`
}

// AttendanceBatchResponse reports per-batch create/update counts.
type AttendanceBatchResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// AttendanceRecordDTO is one stored employee-day fact.
type AttendanceRecordDTO struct {
	FechaAsistio string `json:"fecha_asistio"`
	Estado       string `json:"estado"`
	Nota         string `json:"nota,omitempty"`
}

// ProductDTO represents a catalog product.
type ProductDTO struct {
	ID            int64  `json:"id"`
	Nombre        string `json:"nombre"`
	Codigo        string `json:"codigo"`
	FkIdCategoria int64  `json:"fk_id_categoria"`
}

// CreateProductRequest is the request to add a product.
type CreateProductRequest struct {
	Nombre        string `json:"nombre" validate:"required"`
	Codigo        string `json:"codigo" validate:"required"`
	FkIdCategoria int64  `json:"fk_id_categoria"`
}

// EmployeeDTO represents an employee.
type EmployeeDTO struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Cargo  string `json:"cargo,omitempty"`
}

// CreateEmployeeRequest is the request to add an employee.
type CreateEmployeeRequest struct {
	Nombre string `json:"nombre" validate:"required"`
	Cargo  string `json:"cargo"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDocumentDTO(doc documents.Document, lines []documents.DetailLine) DocumentDTO {
	return DocumentDTO{
		ID:          doc.ID,
		Tipo:        string(doc.Type),
		Numero:      doc.Number,
		Cliente:     doc.Client,
		Descripcion: doc.Description,
		Total:       doc.Total,
		CreatedAt:   doc.CreatedAt.Format(time.RFC3339),
		Detalles:    toDetailDTOs(lines),
	}
}

func toDetailDTOs(lines []documents.DetailLine) []DetailDTO {
	dtos := make([]DetailDTO, len(lines))
	for i, l := range lines {
		dtos[i] = DetailDTO{
			IdDetalle:      l.ID,
			FkIdProducto:   l.ProductID,
			Cantidad:       l.Quantity,
			PrecioUnitario: l.UnitPrice,
			Subtotal:       l.Subtotal,
			Marca:          l.Brand,
		}
	}
	return dtos
}

func toDetailInputs(reqs []DetailRequest) []documents.DetailInput {
	inputs := make([]documents.DetailInput, len(reqs))
	for i, r := range reqs {
		inputs[i] = documents.DetailInput{
			LineID:    r.IdDetalle,
			ProductID: r.FkIdProducto,
			Quantity:  r.Cantidad,
			UnitPrice: r.PrecioUnitario,
			Brand:     r.Marca,
		}
	}
	return inputs
}

func toAttendanceCells(reqs []AttendanceCellRequest) ([]attendance.Cell, error) {
	cells := make([]attendance.Cell, len(reqs))
	for i, r := range reqs {
		date, err := time.Parse(attendance.DateLayout, r.FechaAsistio)
		if err != nil {
			return nil, fmt.Errorf("empleados[%d].fecha_asistio: want %s, got %q", i, attendance.DateLayout, r.FechaAsistio)
		}
		cells[i] = attendance.Cell{
			EmployeeID: r.FkIdEmpleados,
			Date:       date,
			State:      attendance.State(r.Estado),
			Note:       r.Nota,
		}
	}
	return cells, nil
}

func toProductDTOs(products []catalog.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = ProductDTO{ID: p.ID, Nombre: p.Name, Codigo: p.Code, FkIdCategoria: p.CategoryID}
	}
	return dtos
}

func toEmployeeDTOs(employees []catalog.Employee) []EmployeeDTO {
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = EmployeeDTO{ID: e.ID, Nombre: e.Name, Cargo: e.Position}
	}
	return dtos
}

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hostel-management/internal/billing"
)

// BillingHandler exposes the fee ledger.  Writes are admin only; students
// read their own sheet through StudentBilling.
type BillingHandler struct {
    Ledger *billing.Ledger
}

// NewBillingHandler panics on a nil ledger.
func NewBillingHandler(l *billing.Ledger) *BillingHandler {
    if l == nil {
        panic("nil ledger passed to NewBillingHandler")
    }
    return &BillingHandler{Ledger: l}
}

// Summary handles GET /v1/admin/billing/summary.
func (h *BillingHandler) Summary(c echo.Context) error {
    rows, err := h.Ledger.GetBillingSummary(c.Request().Context())
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "", echo.Map{"rows": rows})
}

// Manage handles GET /v1/admin/billing/:roll_no.
func (h *BillingHandler) Manage(c echo.Context) error {
    v, err := h.Ledger.GetManageView(c.Request().Context(), c.Param("roll_no"))
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "", echo.Map{"student": v.Student, "billing_by_year": v.BillingByYear})
}

// SaveYear handles POST /v1/admin/billing/save-year.
func (h *BillingHandler) SaveYear(c echo.Context) error {
    var body struct {
        RollNo       string             `json:"roll_no"`
        AcademicYear string             `json:"academic_year"`
        Rows         []billing.RowInput `json:"rows"`
    }
    if err := c.Bind(&body); err != nil {
        return failure(c, http.StatusBadRequest, "invalid request body")
    }
    if body.Rows == nil {
        return failure(c, http.StatusBadRequest, "rows is required")
    }
    res, err := h.Ledger.SaveYear(c.Request().Context(), body.RollNo, body.AcademicYear, body.Rows)
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "Billing saved", echo.Map{"saved": res.Saved, "skipped": res.Skipped})
}

// SaveAll handles POST /v1/admin/billing/save-all.
func (h *BillingHandler) SaveAll(c echo.Context) error {
    var body struct {
        RollNo string              `json:"roll_no"`
        Years  []billing.YearInput `json:"years"`
    }
    if err := c.Bind(&body); err != nil {
        return failure(c, http.StatusBadRequest, "invalid request body")
    }
    res, err := h.Ledger.SaveAllYears(c.Request().Context(), body.RollNo, body.Years)
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "Billing saved", echo.Map{"saved": res.Saved, "skipped": res.Skipped})
}

// Add handles POST /v1/admin/billing/add.
func (h *BillingHandler) Add(c echo.Context) error {
    var body billing.NewRecord
    if err := c.Bind(&body); err != nil {
        return failure(c, http.StatusBadRequest, "invalid request body")
    }
    rec, err := h.Ledger.AddRecord(c.Request().Context(), body)
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusCreated, "Billing record added", echo.Map{"id": rec.ID, "record": rec})
}

// StudentBilling handles GET /v1/students/:roll_no/billing.
func (h *BillingHandler) StudentBilling(c echo.Context) error {
    years, err := h.Ledger.GetStudentBilling(c.Request().Context(), c.Param("roll_no"))
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "", echo.Map{"years": years})
}

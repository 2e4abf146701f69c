package dataprep

import (
	"io"
	"log"
	"math"
	"strings"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// Spec names the raw columns the cleaner relies on.
type Spec struct {
	IDColumn       string // dropped unconditionally
	TenureColumn   string // rows with zero tenure are removed
	MonetaryColumn string // text-typed amount, coerced then imputed
	ChargesColumn  string // numeric amount, must be fully populated
	SeniorColumn   string // 0/1 flag re-expressed as No/Yes
}

// DefaultSpec returns the column names of the telco churn extract.
func DefaultSpec() Spec {
	return Spec{
		IDColumn:       "customerID",
		TenureColumn:   "tenure",
		MonetaryColumn: "TotalCharges",
		ChargesColumn:  "MonthlyCharges",
		SeniorColumn:   "SeniorCitizen",
	}
}

// TextColumns names the raw columns that must be read as text: identifiers
// keep their exact spelling ("0001" stays "0001").
func (s Spec) TextColumns() []string {
	return []string{s.IDColumn}
}

// CleanState is the fitted part of cleaning; it travels inside the artifact.
type CleanState struct {
	MonetaryFill float64
}

// Cleaned is the output of one cleaning pass.
type Cleaned struct {
	Frame *data.Frame
	// Rows holds the source row index of every kept row.
	Rows []int
	// IDs holds the identifier of every kept row, before it was dropped.
	IDs   []string
	State CleanState

	Coerced           int // unparsable monetary cells turned into nulls
	Imputed           int // nulls filled after zero-tenure removal
	DroppedZeroTenure int
}

// Cleaner normalizes raw records into a well-typed frame.
type Cleaner struct {
	Spec   Spec
	Logger *log.Logger
}

func NewCleaner(logger *log.Logger) *Cleaner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cleaner{Spec: DefaultSpec(), Logger: logger}
}

// Clean runs the training-time pass: the monetary fill value is the column
// mean computed after zero-tenure rows are removed.
func (c *Cleaner) Clean(raw *data.Frame) (*Cleaned, error) {
	return c.clean(raw, nil)
}

// CleanWith runs the inference-time pass, imputing with a persisted fill.
func (c *Cleaner) CleanWith(raw *data.Frame, state CleanState) (*Cleaned, error) {
	return c.clean(raw, &state)
}

func (c *Cleaner) clean(raw *data.Frame, fixed *CleanState) (*Cleaned, error) {
	s := c.Spec
	for _, name := range []string{s.IDColumn, s.TenureColumn, s.MonetaryColumn, s.ChargesColumn, s.SeniorColumn} {
		if !raw.Has(name) {
			return nil, errs.Schemaf(name, "expected column is missing")
		}
	}

	tenure, _ := raw.Column(s.TenureColumn)
	if tenure.Kind != data.Numeric {
		return nil, errs.Schemaf(s.TenureColumn, "want numeric column, got %v", tenure.Kind)
	}
	for i, v := range tenure.Floats {
		if math.IsNaN(v) {
			return nil, errs.Schemaf(s.TenureColumn, "row %d is blank", i)
		}
	}
	charges, _ := raw.Column(s.ChargesColumn)
	if charges.Kind != data.Numeric {
		return nil, errs.Schemaf(s.ChargesColumn, "want numeric column, got %v", charges.Kind)
	}
	for i, v := range charges.Floats {
		if math.IsNaN(v) {
			return nil, errs.Schemaf(s.ChargesColumn, "row %d is blank", i)
		}
	}
	senior, err := seniorLabels(raw, s.SeniorColumn)
	if err != nil {
		return nil, err
	}

	idCol, _ := raw.Column(s.IDColumn)
	ids := make([]string, raw.Len())
	for i := range ids {
		ids[i] = idCol.Cell(i)
	}

	monetary, coerced := coerceAmounts(raw, s.MonetaryColumn)

	f, err := raw.With(data.NumericColumn(s.MonetaryColumn, monetary))
	if err != nil {
		return nil, err
	}
	if f, err = f.With(data.CategoricalColumn(s.SeniorColumn, senior)); err != nil {
		return nil, err
	}
	f = f.Drop(s.IDColumn)

	keep := make([]bool, raw.Len())
	for i, v := range tenure.Floats {
		keep[i] = v != 0
	}
	f, rows := f.Filter(keep)
	dropped := raw.Len() - len(rows)

	// Imputation happens after the zero-tenure filter; those rows carry a
	// structurally missing amount and must not move the mean.
	kept, _ := f.Column(s.MonetaryColumn)
	var state CleanState
	if fixed != nil {
		state = *fixed
	} else {
		mean, n := NonMissingMean(kept.Floats)
		if n == 0 && f.Len() > 0 {
			c.Logger.Printf("dataprep: no parsable %s values, imputing 0", s.MonetaryColumn)
		}
		state.MonetaryFill = mean
	}
	filled, imputed := ImputeConstant(kept.Floats, state.MonetaryFill)
	if f, err = f.With(data.NumericColumn(s.MonetaryColumn, filled)); err != nil {
		return nil, err
	}

	keptIDs := make([]string, len(rows))
	for i, r := range rows {
		keptIDs[i] = ids[r]
	}

	c.Logger.Printf("dataprep: cleaned %d rows (dropped %d zero-tenure, coerced %d, imputed %d with %.4f)",
		f.Len(), dropped, coerced, imputed, state.MonetaryFill)

	return &Cleaned{
		Frame:             f,
		Rows:              rows,
		IDs:               keptIDs,
		State:             state,
		Coerced:           coerced,
		Imputed:           imputed,
		DroppedZeroTenure: dropped,
	}, nil
}

// coerceAmounts converts the monetary column to floats. Cells that are
// present but unparsable count as coerced.
func coerceAmounts(raw *data.Frame, name string) ([]float64, int) {
	col, _ := raw.Column(name)
	out := make([]float64, raw.Len())
	coerced := 0
	if col.Kind == data.Numeric {
		copy(out, col.Floats)
		return out, 0
	}
	for i, s := range col.Strings {
		out[i] = ParseAmount(s)
		if math.IsNaN(out[i]) {
			coerced++
		}
	}
	return out, coerced
}

// seniorLabels maps the 0/1 flag to No/Yes, whether the column was read as
// numbers or as text. Already-labelled input passes.
func seniorLabels(raw *data.Frame, name string) ([]string, error) {
	col, _ := raw.Column(name)
	out := make([]string, raw.Len())
	for i := range out {
		switch {
		case col.Kind == data.Numeric && col.Floats[i] == 0:
			out[i] = "No"
		case col.Kind == data.Numeric && col.Floats[i] == 1:
			out[i] = "Yes"
		case col.Kind == data.Categorical && (col.Strings[i] == "No" || col.Strings[i] == "Yes"):
			out[i] = col.Strings[i]
		case col.Kind == data.Categorical && strings.TrimSpace(col.Strings[i]) == "0":
			out[i] = "No"
		case col.Kind == data.Categorical && strings.TrimSpace(col.Strings[i]) == "1":
			out[i] = "Yes"
		default:
			return nil, errs.Schemaf(name, "row %d has value %q, want 0/1", i, col.Cell(i))
		}
	}
	return out, nil
}

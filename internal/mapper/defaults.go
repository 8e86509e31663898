package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/kinds"
)

// nowToken is accepted as a default for temporal kinds.
const nowToken = "now"

// renderDefault returns the SQL expression for a field's declared default.
func renderDefault(def *kinds.Def, field *ast.FieldDef, spec *ast.ColumnSpec) (string, error) {
	v := field.Options.Default

	switch def.Family {
	case kinds.FamilyText:
		return stringLiteral(v)

	case kinds.FamilySelect:
		s, err := stringValue(v)
		if err != nil {
			return "", err
		}
		if !slices.Contains(field.Options.Choices, s) {
			return "", invalidDefault(v, "default is not one of the choices")
		}
		return pq.QuoteLiteral(s), nil

	case kinds.FamilyMultiSelect:
		return arrayLiteral(v, field.Options.Choices)

	case kinds.FamilyInteger:
		n, ok := toInt64(v)
		if !ok {
			return "", invalidDefault(v, "default must be an integer")
		}
		if spec.Check != nil && spec.Check.Kind == ast.CheckRange &&
			(n < int64(spec.Check.Min) || n > int64(spec.Check.Max)) {
			return "", invalidDefault(v, fmt.Sprintf("default must be between %d and %d", spec.Check.Min, spec.Check.Max))
		}
		return strconv.FormatInt(n, 10), nil

	case kinds.FamilyNumeric:
		d, ok := toDecimal(v)
		if !ok {
			return "", invalidDefault(v, "default must be a decimal number")
		}
		return d.String(), nil

	case kinds.FamilyBoolean:
		b, ok := v.(bool)
		if !ok {
			return "", invalidDefault(v, "default must be true or false")
		}
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil

	case kinds.FamilyDate:
		return temporalLiteral(v, "CURRENT_DATE")

	case kinds.FamilyTimestamp:
		return temporalLiteral(v, "NOW()")

	case kinds.FamilyTime:
		return temporalLiteral(v, "LOCALTIME")

	case kinds.FamilyInterval, kinds.FamilyGeometric:
		return stringLiteral(v)

	case kinds.FamilyUUID:
		s, err := stringValue(v)
		if err != nil {
			return "", err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return "", invalidDefault(v, "default must be a UUID")
		}
		return pq.QuoteLiteral(id.String()), nil

	case kinds.FamilyNetwork:
		s, err := stringValue(v)
		if err != nil {
			return "", err
		}
		if _, err := netip.ParseAddr(s); err != nil {
			if _, perr := netip.ParsePrefix(s); perr != nil {
				return "", invalidDefault(v, "default must be an IP address")
			}
		}
		return pq.QuoteLiteral(s), nil

	case kinds.FamilyDocument:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", invalidDefault(v, "default must be JSON encodable")
		}
		return pq.QuoteLiteral(string(raw)) + "::jsonb", nil

	case kinds.FamilyLink, kinds.FamilySerial, kinds.FamilyVirtual:
		return "", alerr.New(alerr.ErrInvalidOption, "field kind does not accept a default").
			With("kind", string(def.Kind))
	}

	return "", alerr.New(alerr.EInternalError, "kind family has no default rule").
		With("kind", string(def.Kind))
}

func invalidDefault(v any, msg string) *alerr.Error {
	return alerr.New(alerr.ErrInvalidOption, msg).With("default", v)
}

func stringValue(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", invalidDefault(v, "default must be a string")
	}
	return s, nil
}

func stringLiteral(v any) (string, error) {
	s, err := stringValue(v)
	if err != nil {
		return "", err
	}
	return pq.QuoteLiteral(s), nil
}

func temporalLiteral(v any, now string) (string, error) {
	s, err := stringValue(v)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(s, nowToken) {
		return now, nil
	}
	return pq.QuoteLiteral(s), nil
}

func arrayLiteral(v any, choices []string) (string, error) {
	items, ok := v.([]any)
	if !ok {
		if ss, isStrings := v.([]string); isStrings {
			for _, s := range ss {
				items = append(items, s)
			}
			ok = true
		}
	}
	if !ok {
		return "", invalidDefault(v, "default must be a list of choices")
	}

	quoted := make([]string, 0, len(items))
	for _, item := range items {
		s, isString := item.(string)
		if !isString || !slices.Contains(choices, s) {
			return "", invalidDefault(v, "default contains a value that is not one of the choices")
		}
		quoted = append(quoted, pq.QuoteLiteral(s))
	}
	return "ARRAY[" + strings.Join(quoted, ", ") + "]::TEXT[]", nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

package entity

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Criterion is match criteria for a single field of a Record. Its Meets
// function performs the actual check as to whether the given value meets it.
// A field that is not present in a record is passed to Meets as nil.
//
// The Format string is used for printing the Criterion to a human-readable
// string. It will be passed the name of the field being checked at the time of
// formatting; this will be "VALUE" when there is no specific field (such as
// when calling String() by itself). If Format is not set, a generic string will
// be used instead.
//
// NotFormat, if given, defines what to show when this Criterion has DoesNot
// applied to it.
//
// Two Criterion with the same Format strings should return the same values
// from their Meets methods when given identical inputs. The same applies to
// NotFormat.
type Criterion struct {
	Meets     func(v any) bool
	Format    string
	NotFormat string
}

// String returns the string representation of crit, which will be the same as
// FilledString called with a placeholder string.
func (crit Criterion) String() string {
	return crit.FilledString("VALUE")
}

// FilledString returns the string representation of this Criterion when it is
// being used to check against a particular field. The value is passed unchanged
// to crit's Format to create the formatted check-string.
func (crit Criterion) FilledString(value string) string {
	fmtStr := crit.Format
	if fmtStr == "" {
		fmtStr = "CRITERION(%s)"
	}

	return fmt.Sprintf(fmtStr, value)
}

// Equals returns a Criterion that checks that the field equals val. Numbers of
// any Go numeric type are compared by value, so Equals(2) matches a field
// holding float64(2).
func Equals(val any) Criterion {
	return Criterion{
		Meets: func(v any) bool {
			return valuesEqual(v, val)
		},
		Format:    "%s" + fmt.Sprintf(" == %s", formatValue(val)),
		NotFormat: "%s" + fmt.Sprintf(" != %s", formatValue(val)),
	}
}

// EqualsFold returns a Criterion that checks that the field is a string equal
// to s under Unicode case-folding.
func EqualsFold(s string) Criterion {
	return Criterion{
		Meets: func(v any) bool {
			str, ok := v.(string)
			return ok && strings.EqualFold(str, s)
		},
		Format:    "lower(%s)" + fmt.Sprintf(" == %q", strings.ToLower(s)),
		NotFormat: "lower(%s)" + fmt.Sprintf(" != %q", strings.ToLower(s)),
	}
}

// Contains returns a Criterion that checks that the field is a string that
// contains sub, ignoring case. An empty sub matches every string.
func Contains(sub string) Criterion {
	lowerSub := strings.ToLower(sub)
	return Criterion{
		Meets: func(v any) bool {
			str, ok := v.(string)
			return ok && strings.Contains(strings.ToLower(str), lowerSub)
		},
		Format:    "%s" + fmt.Sprintf(" CONTAINS %q", lowerSub),
		NotFormat: "%s" + fmt.Sprintf(" NOT CONTAINS %q", lowerSub),
	}
}

// In returns a Criterion that checks that the field equals at least one of the
// given values, as per Equals.
func In(vals ...any) Criterion {
	parts := make([]string, len(vals))
	for i := range vals {
		parts[i] = formatValue(vals[i])
	}
	list := "[" + strings.Join(parts, ", ") + "]"

	return Criterion{
		Meets: func(v any) bool {
			for _, candidate := range vals {
				if valuesEqual(v, candidate) {
					return true
				}
			}
			return false
		},
		Format:    "%s IN " + list,
		NotFormat: "%s NOT IN " + list,
	}
}

// Exists returns a Criterion that checks that the field is set to a non-nil
// value.
func Exists() Criterion {
	return Criterion{
		Meets: func(v any) bool {
			return v != nil
		},
		Format:    "%s != NULL",
		NotFormat: "%s == NULL",
	}
}

// IsNull returns a Criterion that checks that the field is not set or is null.
func IsNull() Criterion {
	return DoesNot(Exists())
}

// IsGreaterThan returns a Criterion that checks that the field is a number
// greater than n.
func IsGreaterThan(n float64) Criterion {
	return numberCriterion(">", "<=", n, func(v float64) bool { return v > n })
}

// IsGreaterThanOrEquals returns a Criterion that checks that the field is a
// number greater than or equal to n.
func IsGreaterThanOrEquals(n float64) Criterion {
	return numberCriterion(">=", "<", n, func(v float64) bool { return v >= n })
}

// IsLessThan returns a Criterion that checks that the field is a number less
// than n.
func IsLessThan(n float64) Criterion {
	return numberCriterion("<", ">=", n, func(v float64) bool { return v < n })
}

// IsLessThanOrEquals returns a Criterion that checks that the field is a number
// less than or equal to n.
func IsLessThanOrEquals(n float64) Criterion {
	return numberCriterion("<=", ">", n, func(v float64) bool { return v <= n })
}

// IsBetween returns a Criterion that checks that the field is a number between
// lo and hi, inclusive.
func IsBetween(lo, hi float64) Criterion {
	loS := strconv.FormatFloat(lo, 'f', -1, 64)
	hiS := strconv.FormatFloat(hi, 'f', -1, 64)

	return Criterion{
		Meets: func(v any) bool {
			f, ok := toFloat(v)
			return ok && lo <= f && f <= hi
		},
		Format:    loS + " <= %s <= " + hiS,
		NotFormat: "!(" + loS + " <= %s <= " + hiS + ")",
	}
}

func numberCriterion(op, notOp string, n float64, cmp func(float64) bool) Criterion {
	nS := strconv.FormatFloat(n, 'f', -1, 64)
	return Criterion{
		Meets: func(v any) bool {
			f, ok := toFloat(v)
			return ok && cmp(f)
		},
		Format:    "%s " + op + " " + nS,
		NotFormat: "%s " + notOp + " " + nS,
	}
}

// IsAfter returns a Criterion that checks that the field is a time, or a string
// holding one, that is after t.
func IsAfter(t time.Time) Criterion {
	return timeCriterion(">", "<=", t, func(v time.Time) bool { return v.After(t) })
}

// IsAfterOrEquals returns a Criterion that checks that the field is a time on
// or after t.
func IsAfterOrEquals(t time.Time) Criterion {
	return timeCriterion(">=", "<", t, func(v time.Time) bool { return !v.Before(t) })
}

// IsBefore returns a Criterion that checks that the field is a time before t.
func IsBefore(t time.Time) Criterion {
	return timeCriterion("<", ">=", t, func(v time.Time) bool { return v.Before(t) })
}

// IsBeforeOrEquals returns a Criterion that checks that the field is a time on
// or before t.
func IsBeforeOrEquals(t time.Time) Criterion {
	return timeCriterion("<=", ">", t, func(v time.Time) bool { return !v.After(t) })
}

func timeCriterion(op, notOp string, t time.Time, cmp func(time.Time) bool) Criterion {
	t = t.UTC().Round(0)
	tS := t.Format(time.RFC3339)
	return Criterion{
		Meets: func(v any) bool {
			vt, ok := toTime(v)
			return ok && cmp(vt)
		},
		Format:    "%s " + op + " " + tS,
		NotFormat: "%s " + notOp + " " + tS,
	}
}

// DoesNot returns a Criterion that matches exactly the values that c does not.
func DoesNot(c Criterion) Criterion {
	origFormat := c.Format
	if origFormat == "" {
		origFormat = "CRITERION(%s)"
	}

	origNot := c.NotFormat
	if origNot == "" {
		origNot = "!(" + origFormat + ")"
	}

	return Criterion{
		Meets: func(v any) bool {
			return !c.Meets(v)
		},
		Format:    origNot,
		NotFormat: origFormat,
	}
}

// Meets returns a Criterion that matches against field values of type E by
// calling fn. Values that are not an E never meet it, except that when E is
// float64 any numeric value is converted first.
//
// baseName, if given, is used as the basis for both Format and NotFormat; only
// the first is read. If one is provided and it is blank, this function will
// panic. When no baseName is given, a random one is generated so that two
// Criterion built from different functions never format the same.
func Meets[E any](fn func(v E) bool, baseName ...string) Criterion {
	var funcName string

	if len(baseName) > 0 {
		if baseName[0] == "" {
			panic("Meets() called with explicitly empty baseName")
		}

		funcName = baseName[0]
	} else {
		var typeParamInst E
		typeName := strings.ToUpper(fmt.Sprintf("%T", typeParamInst))
		typeName = strings.NewReplacer("<", "", ">", "", "*", "PTR_", ".", "_").Replace(typeName)
		randStr := strings.ReplaceAll(uuid.NewString(), "-", "")

		funcName = fmt.Sprintf("CHECK_%s_%s", typeName, randStr)
	}

	return Criterion{
		Meets: func(v any) bool {
			if e, ok := v.(E); ok {
				return fn(e)
			}
			if f, ok := toFloat(v); ok {
				if e, ok := any(f).(E); ok {
					return fn(e)
				}
			}
			return false
		},
		Format:    funcName + "(%s)",
		NotFormat: "!" + funcName + "(%s)",
	}
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if _, ok := toFloat(b); ok {
		return false
	}

	if at, ok := a.(time.Time); ok {
		bt, ok := toTime(b)
		return ok && at.Equal(bt)
	}
	if bt, ok := b.(time.Time); ok {
		at, ok := toTime(a)
		return ok && at.Equal(bt)
	}

	if au, ok := a.(uuid.UUID); ok {
		bu, ok := toUUID(b)
		return ok && au == bu
	}
	if bu, ok := b.(uuid.UUID); ok {
		au, ok := toUUID(a)
		return ok && au == bu
	}

	return reflect.DeepEqual(a, b)
}

// toUUID accepts a uuid.UUID or its string form. Stored ids are strings.
func toUUID(v any) (uuid.UUID, bool) {
	switch typed := v.(type) {
	case uuid.UUID:
		return typed, true
	case string:
		u, err := uuid.Parse(typed)
		return u, err == nil
	default:
		return uuid.UUID{}, false
	}
}

func formatValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strconv.Quote(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(typed)
	}
}

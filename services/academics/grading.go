package academics

// gradeBand is the lowest total that earns a grade.
type gradeBand struct {
	min    float64
	grade  string
	remark string
}

// bands are ordered from the highest minimum down.
var bands = []gradeBand{
	{80, "A1", "Excellent"},
	{70, "B2", "Very Good"},
	{65, "B3", "Good"},
	{60, "C4", "Credit"},
	{55, "C5", "Credit"},
	{50, "C6", "Credit"},
	{45, "D7", "Pass"},
	{40, "E8", "Pass"},
	{0, "F9", "Fail"},
}

// Grade returns the grade and remark for a total score out of 100.
func Grade(total float64) (grade, remark string) {
	for _, b := range bands {
		if total >= b.min {
			return b.grade, b.remark
		}
	}
	last := bands[len(bands)-1]
	return last.grade, last.remark
}

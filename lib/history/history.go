// Package history parses the rendered text of the portal's activity history
// table into records.
//
// The page renders each activity as a numbered block:
//
//	1. กิจกรรม: <name> ประเภทกิจกรรม: <type>
//	รหัสบาร์โค้ด: <code>
//	สถานที่ทำกิจกรรม: <location>
//	วันที่เข้าร่วมกิจกรรม: <date>
package history

import (
	"regexp"
	"strings"

	"actassist-backend/lib/textutil"
)

// Unspecified is the value of any field that could not be extracted.
const Unspecified = "ไม่ระบุ"

const (
	CompulsoryMarker    = "บังคับ"
	SupplementaryMarker = "เสริม"
)

const (
	labelName     = "กิจกรรม"
	labelType     = "ประเภทกิจกรรม"
	labelCode     = "รหัสบาร์โค้ด"
	labelLocation = "สถานที่ทำกิจกรรม"
	labelDate     = "วันที่เข้าร่วมกิจกรรม"
)

type Record struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Code     string `json:"code"`
	Location string `json:"location"`
	Date     string `json:"date"`
}

// \p{Zs} covers the non-breaking spaces innerText produces for &nbsp;
var entrySplit = regexp.MustCompile(`(?m)^[\s\p{Zs}]*\d+\.[\s\p{Zs}]+`)

// longer labels first, several labels end with the name label
var labelPattern = regexp.MustCompile(
	`(` + strings.Join([]string{labelType, labelLocation, labelDate, labelCode, labelName}, "|") + `)[\s\p{Zs}]*:`,
)

const minEntryLines = 4

// Parse splits text into numbered entries and extracts one record per entry
// that has at least 4 non-empty lines. Text before the first numbered entry
// is ignored. A field that cannot be found is set to Unspecified, it never
// causes the entry to be dropped.
func Parse(text string) []Record {
	entries := entrySplit.Split(text, -1)

	records := []Record{}
	for _, entry := range entries[1:] {
		lines := textutil.Lines(entry)
		if len(lines) < minEntryLines {
			continue
		}

		first := labeledValues(lines[0])
		code := Unspecified
		if fields := strings.Fields(labeledValues(lines[1])[labelCode]); len(fields) > 0 {
			code = fields[0]
		}

		records = append(records, Record{
			Name:     orUnspecified(first[labelName]),
			Type:     orUnspecified(first[labelType]),
			Code:     code,
			Location: orUnspecified(labeledValues(lines[2])[labelLocation]),
			Date:     orUnspecified(labeledValues(lines[3])[labelDate]),
		})
	}
	return records
}

// labeledValues maps each label found on the line to the text between it and
// the next label (or the end of the line). The first occurrence of a label
// wins.
func labeledValues(line string) map[string]string {
	matches := labelPattern.FindAllStringSubmatchIndex(line, -1)
	values := make(map[string]string, len(matches))
	for i, m := range matches {
		label := line[m[2]:m[3]]
		end := len(line)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		if _, seen := values[label]; seen {
			continue
		}
		values[label] = textutil.CollapseSpace(line[m[1]:end])
	}
	return values
}

func orUnspecified(value string) string {
	if value == "" {
		return Unspecified
	}
	return value
}

// Partition splits records by their type into compulsory and supplementary
// activities, preserving order. A type containing the compulsory marker is
// compulsory even if it also contains the supplementary marker. Records whose
// type contains neither marker (including Unspecified) are in neither list.
func Partition(records []Record) (compulsory, supplementary []Record) {
	compulsory = []Record{}
	supplementary = []Record{}
	for _, r := range records {
		switch {
		case strings.Contains(r.Type, CompulsoryMarker):
			compulsory = append(compulsory, r)
		case strings.Contains(r.Type, SupplementaryMarker):
			supplementary = append(supplementary, r)
		}
	}
	return compulsory, supplementary
}

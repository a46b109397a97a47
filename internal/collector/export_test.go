package collector

// ParseLineForTest exposes input-line classification to the package tests.
func ParseLineForTest(line string) (level, msg string, meta map[string]any) {
	return parseLine(line)
}

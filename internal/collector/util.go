package collector

import (
	"os"
	"regexp"
	"strconv"
)

// ParseInt returns the first capture group of regex in src as an int64,
// or nil when there is no match. The pattern is matched in multi-line
// mode, which suits the key/value text blobs under /proc and /sys.
func ParseInt(regex, src string) *int64 {
	re, err := regexp.Compile("(?m)" + regex)
	if err != nil {
		return nil
	}

	m := re.FindStringSubmatch(src)
	if len(m) < 2 {
		return nil
	}

	val, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}

	return &val
}

// CountOccurrences returns the number of matches of regex in src, or nil
// when there are none.
func CountOccurrences(regex, src string) *int64 {
	re, err := regexp.Compile("(?m)" + regex)
	if err != nil {
		return nil
	}

	n := int64(len(re.FindAllStringIndex(src, -1)))
	if n == 0 {
		return nil
	}

	return &n
}

// ReadDatafile reads a backing data file and returns its contents. An
// unreadable file is reported as a recoverable error; whether that is
// fatal for the collector is the caller's decision.
func ReadDatafile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", WrapRecoverable("cannot read "+path, err)
	}

	return string(data), nil
}

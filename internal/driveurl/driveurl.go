// Package driveurl pulls Drive object ids out of sharing links.
package driveurl

import (
	"errors"
	"regexp"
	"strings"
)

var ErrNoID = errors.New("no id found in url")

var (
	folderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/drive/(?:u/\d+/)?folders/([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`/folders/([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
	}

	filePatterns = []*regexp.Regexp{
		regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
	}
)

func ExtractFolderID(url string) (string, error) {
	return firstMatch(url, folderPatterns)
}

func ExtractFileID(url string) (string, error) {
	return firstMatch(url, filePatterns)
}

// ExtractAnyID accepts either a file or a folder link.
func ExtractAnyID(url string) (string, error) {
	if id, err := ExtractFileID(url); err == nil {
		return id, nil
	}

	return ExtractFolderID(url)
}

// ResolveDest extracts a destination folder id, treating a blank link as the
// configured root folder.
func ResolveDest(url, rootID string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return rootID, nil
	}

	return ExtractFolderID(url)
}

func firstMatch(url string, patterns []*regexp.Regexp) (string, error) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}

	return "", ErrNoID
}

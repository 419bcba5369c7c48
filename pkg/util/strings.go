package util

import "strings"

// RemoveDuplicateStrings trims every item and drops empty ones, duplicates and the ones in ignoreList.
func RemoveDuplicateStrings(items []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	var list []string

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range items {
		item = strings.TrimSpace(item)
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}

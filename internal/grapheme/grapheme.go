// Package grapheme splits strings into user-perceived characters.
// It wraps the Unicode segmentation rules from rivo/uniseg so combining
// marks, regional-indicator pairs and ZWJ emoji sequences stay intact.
package grapheme

import (
	"iter"

	"github.com/rivo/uniseg"
)

// All iterates over the grapheme clusters of s in order without
// materializing a slice. Concatenating the yielded clusters reproduces s
// byte for byte; invalid UTF-8 sequences are carried through unmodified.
func All(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		state := -1
		for len(s) > 0 {
			var cluster string
			cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
			if !yield(cluster) {
				return
			}
		}
	}
}

// Clusters returns the grapheme clusters of s as a slice.
func Clusters(s string) []string {
	var clusters []string
	for cluster := range All(s) {
		clusters = append(clusters, cluster)
	}
	return clusters
}

// Count reports the number of grapheme clusters in s.
func Count(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

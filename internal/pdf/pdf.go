// Package pdf pulls embedded raster images out of PDF documents so they can
// be scanned for barcodes.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// PageImage is one image embedded on a PDF page.
type PageImage struct {
	Page  int
	Index int // position among the page's images, starting at 1
	Image image.Image
}

// ExtractImages extracts the images on the selected pages, ordered by page
// and then by their position on the page. An empty pageRange selects all pages.
func ExtractImages(ctx context.Context, filename, pageRange string) ([]PageImage, error) {
	return ExtractImagesWithConfig(ctx, filename, pageRange, nil)
}

// ExtractImagesWithConfig is ExtractImages with a pdfcpu configuration,
// e.g. one carrying passwords.
func ExtractImagesWithConfig(ctx context.Context, filename, pageRange string, conf *model.Configuration) ([]PageImage, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "barscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	for _, n := range pageNumbers {
		pageStrings = append(pageStrings, strconv.Itoa(n))
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	images, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return images, nil
}

// PageCount returns the number of pages in the document.
func PageCount(filename string) (int, error) {
	return api.PageCountFile(filename)
}

// collectExtractedImages loads the pdfcpu output files named
// <base>_<page>_<name>.<ext> and sorts them by page and index.
func collectExtractedImages(dir string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []PageImage
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, index, err := parsePageFromFilename(e.Name())
		if err != nil {
			continue
		}
		img, _, err := utils.LoadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, PageImage{Page: page, Index: index, Image: img})
	}

	slices.SortStableFunc(out, func(a, b PageImage) int {
		if a.Page != b.Page {
			return a.Page - b.Page
		}
		return a.Index - b.Index
	})
	// renumber so indexes are dense per page
	for i := range out {
		if i > 0 && out[i].Page == out[i-1].Page {
			out[i].Index = out[i-1].Index + 1
		} else {
			out[i].Index = 1
		}
	}
	return out, nil
}

// parsePageFromFilename reads the page number and image ordinal from an
// extracted file name. pdfcpu writes <base>_<page>_<resource>.<ext> where the
// resource is e.g. "Im3"; older releases wrote page_<page>_image_<idx>.<ext>.
func parsePageFromFilename(filename string) (int, int, error) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0, 0, errors.New("not a page image file")
	}

	pageToken := parts[len(parts)-2]
	if parts[0] == "page" {
		pageToken = parts[1]
	}
	page, err := strconv.Atoi(pageToken)
	if err != nil || page < 1 {
		return 0, 0, errors.New("invalid page number")
	}
	return page, trailingNumber(parts[len(parts)-1]), nil
}

// trailingNumber returns the decimal suffix of s, 0 if there is none.
func trailingNumber(s string) int {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	n, _ := strconv.Atoi(s[i:])
	return n
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
// Duplicates are removed and the result is sorted.
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}

	slices.Sort(pages)
	return slices.Compact(pages), nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if part == "" {
		return nil, errors.New("empty page token")
	}
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil || start < 1 {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

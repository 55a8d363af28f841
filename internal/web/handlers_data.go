package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// parseProductFilter reads filter[<attribute key>]=<term id>,<term id>
// query parameters. Ids within one attribute are alternatives; separate
// attributes must all match.
func parseProductFilter(r *http.Request) (core.ProductFilter, error) {
	filter := core.ProductFilter{Terms: map[string][]int64{}}

	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		attr := key[len("filter[") : len(key)-1]
		if attr == "" {
			continue
		}

		for _, val := range values {
			for _, part := range strings.Split(val, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				id, err := strconv.ParseInt(part, 10, 64)
				if err != nil || id < 1 {
					return core.ProductFilter{}, fmt.Errorf("invalid attribute filter %s=%q", attr, part)
				}
				filter.Terms[attr] = append(filter.Terms[attr], id)
			}
		}
	}
	return filter, nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	products, err := s.service.ListProducts(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = productResponse(p)
	}
	writeJSON(w, map[string]any{"products": out, "count": len(out)})
}

// handleExport downloads the whole catalog as a workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, filename, err := s.service.Export(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if err := sendWorkbook(w, f, filename); err != nil {
		// Headers are sent; all that is left is to log.
		s.logWriteError(r, err)
	}
}

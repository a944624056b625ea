package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonas9200/clima-AGS/pkg/api"
	"github.com/jonas9200/clima-AGS/pkg/readings"
)

// parseFilterQuery reads equipamento, data_inicial, data_final and periodo.
// periodo (24h, 7d, 30d) only fills bounds that were not given explicitly.
func parseFilterQuery(r *http.Request, now time.Time) (readings.Filter, error) {
	q := r.URL.Query()

	start, err := parseBound(q.Get(api.ParamStart), api.ParamStart)
	if err != nil {
		return readings.Filter{}, err
	}
	end, err := parseBound(q.Get(api.ParamEnd), api.ParamEnd)
	if err != nil {
		return readings.Filter{}, err
	}

	if key := strings.TrimSpace(q.Get(api.ParamPeriod)); key != "" {
		from, to, err := readings.LastWindow(key, now)
		if err != nil {
			return readings.Filter{}, fmt.Errorf("invalid '%s': %w", api.ParamPeriod, err)
		}
		if start == nil {
			start = &from
		}
		if end == nil {
			end = &to
		}
	}

	f, err := readings.ResolveFilter(q.Get(api.ParamDevice), start, end)
	if err != nil {
		if errors.Is(err, readings.ErrInvalidRange) {
			return readings.Filter{}, fmt.Errorf("'%s' must be <= '%s'", api.ParamStart, api.ParamEnd)
		}
		return readings.Filter{}, err
	}
	return f, nil
}

func parseBound(s, name string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := readings.ParseTimestamp(s)
	if err != nil {
		return nil, fmt.Errorf("invalid '%s' (expected YYYY-MM-DD HH:MM:SS or RFC3339)", name)
	}
	return &t, nil
}

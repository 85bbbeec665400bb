package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
)

const dayLayout = "2006-01-02"

func dailyCounts(times []time.Time) []model.DailyCount {
	counts := map[string]int{}
	for _, ts := range times {
		counts[ts.UTC().Format(dayLayout)]++
	}
	out := make([]model.DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, model.DailyCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (t *tx) UserGrowth(context.Context) ([]model.DailyCount, error) {
	times := make([]time.Time, 0, len(t.st.users))
	for _, u := range t.st.users {
		times = append(times, u.CreatedAt)
	}
	return dailyCounts(times), nil
}

func (t *tx) LeaseGrowth(context.Context) ([]model.DailyCount, error) {
	times := make([]time.Time, 0, len(t.st.leases))
	for _, l := range t.st.leases {
		times = append(times, l.StartTime)
	}
	return dailyCounts(times), nil
}

func (t *tx) EquipmentFreeRatio(context.Context) ([]model.TypeRatio, error) {
	out := make([]model.TypeRatio, len(t.st.cellTypes))
	for i, ct := range t.st.cellTypes {
		out[i] = model.TypeRatio{TypeID: ct.ID, Name: ct.Name}
	}
	for _, c := range t.st.cells {
		r := &out[c.TypeID-1]
		r.Total++
		if c.Free() {
			r.Free++
		}
	}
	return out, nil
}

func (t *tx) LeasesByType(context.Context) ([]model.TypeCount, error) {
	out := make([]model.TypeCount, len(t.st.cellTypes))
	for i, ct := range t.st.cellTypes {
		out[i] = model.TypeCount{TypeID: ct.ID, Name: ct.Name}
	}
	for _, l := range t.st.leases {
		out[t.st.cells[l.CellID-1].TypeID-1].Count++
	}
	return out, nil
}

func (t *tx) LeasesByTypeAndDate(context.Context) ([]model.TypeDateCount, error) {
	type key struct {
		typeID uint64
		day    string
	}
	counts := map[key]int{}
	for _, l := range t.st.leases {
		k := key{t.st.cells[l.CellID-1].TypeID, l.StartTime.UTC().Format(dayLayout)}
		counts[k]++
	}
	out := make([]model.TypeDateCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, model.TypeDateCount{
			TypeID: k.typeID,
			Name:   t.st.cellTypes[k.typeID-1].Name,
			Date:   k.day,
			Count:  n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].TypeID < out[j].TypeID
	})
	return out, nil
}

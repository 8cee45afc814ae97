package ar

import (
	"sort"
	"time"
)

var agingLabels = []string{"Current", "1-30", "31-60", "61-90", "91-120", "120+"}

func agingBucketIndex(asOf, dueDate time.Time) int {
	overdue := int(asOf.Sub(dueDate).Hours() / 24)
	switch {
	case overdue <= 0:
		return 0
	case overdue <= 30:
		return 1
	case overdue <= 60:
		return 2
	case overdue <= 90:
		return 3
	case overdue <= 120:
		return 4
	default:
		return 5
	}
}

func buildAging(asOf time.Time, invoices []Invoice) AgingReport {
	perCustomer := map[int64][]float64{}
	totals := make([]float64, len(agingLabels))

	for _, inv := range invoices {
		out := inv.Outstanding()
		if out <= 0 {
			continue
		}
		buckets, ok := perCustomer[inv.CustomerID]
		if !ok {
			buckets = make([]float64, len(agingLabels))
		}
		idx := agingBucketIndex(asOf, inv.DueDate)
		buckets[idx] = round2(buckets[idx] + out)
		totals[idx] = round2(totals[idx] + out)
		perCustomer[inv.CustomerID] = buckets
	}

	report := AgingReport{AsOf: asOf}
	customerIDs := make([]int64, 0, len(perCustomer))
	for id := range perCustomer {
		customerIDs = append(customerIDs, id)
	}
	sort.Slice(customerIDs, func(i, j int) bool { return customerIDs[i] < customerIDs[j] })

	for _, id := range customerIDs {
		row := AgingRow{CustomerID: id}
		var rowTotal float64
		for i, label := range agingLabels {
			amount := perCustomer[id][i]
			row.Buckets = append(row.Buckets, AgingBucket{Label: label, Amount: amount})
			rowTotal += amount
		}
		row.Total = round2(rowTotal)
		report.Rows = append(report.Rows, row)
	}

	var grand float64
	for i, label := range agingLabels {
		report.Totals = append(report.Totals, AgingBucket{Label: label, Amount: totals[i]})
		grand += totals[i]
	}
	report.Total = round2(grand)
	return report
}

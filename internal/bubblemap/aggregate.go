package bubblemap

// VolumeByAddress sums total_usd_traded for every address across both roles:
// rows where it appears as the source address and rows where it appears as
// the target. Rows whose USD value failed to parse are excluded from the sums
// (they still contribute nodes to the graph); consumers treat absent
// addresses as zero volume.
func VolumeByAddress(rows []Row) map[string]float64 {
	volumes := make(map[string]float64)
	for _, row := range rows {
		if !row.USDValid {
			continue
		}
		volumes[row.Address] += row.TotalUSDTraded
		volumes[row.TargetAddress] += row.TotalUSDTraded
	}
	return volumes
}

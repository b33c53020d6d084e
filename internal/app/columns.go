package app

import "property_insights/internal/domain"

// mapColumns coerces every record into the fixed column layout, preserving
// input order.
func mapColumns(props []domain.PropertyRecord) domain.PropertyColumns {
	cols := domain.NewPropertyColumns(len(props))
	for _, p := range props {
		cols.Zpid = append(cols.Zpid, CoerceInt(p[domain.FieldZpid]))
		cols.Price = append(cols.Price, CoerceFloat(p[domain.FieldPrice]))
		cols.Bedrooms = append(cols.Bedrooms, CoerceFloat(p[domain.FieldBedrooms]))
		cols.Bathrooms = append(cols.Bathrooms, CoerceFloat(p[domain.FieldBathrooms]))
		cols.LivingArea = append(cols.LivingArea, CoerceFloat(p[domain.FieldLivingArea]))
		cols.Latitude = append(cols.Latitude, CoerceFloat(p[domain.FieldLatitude]))
		cols.Longitude = append(cols.Longitude, CoerceFloat(p[domain.FieldLongitude]))
		cols.PricePerSqft = append(cols.PricePerSqft, CoerceFloat(p[domain.FieldPricePerSqft]))
		cols.City = append(cols.City, CoerceString(p[domain.FieldCity], DefaultLabel))
		cols.State = append(cols.State, CoerceString(p[domain.FieldState], DefaultLabel))
		cols.HomeType = append(cols.HomeType, CoerceString(p[domain.FieldHomeType], DefaultLabel))
	}
	return cols
}

// Compile turns raw records into everything a build persists.
func Compile(props []domain.PropertyRecord) domain.Archive {
	cols := mapColumns(props)
	return domain.Archive{
		Properties:   cols,
		Aggregations: Aggregate(cols),
		Metrics:      ComputeGlobalMetrics(cols),
	}
}

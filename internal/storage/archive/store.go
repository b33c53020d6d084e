package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"

	"property_insights/internal/domain"
)

// Store reads and writes insight archives on the local filesystem. It keeps no
// state between calls; each call opens and closes its own file handle.
type Store struct{ perm fs.FileMode }

var _ domain.ArchiveStore = (*Store)(nil)

func New() *Store { return &Store{perm: 0o644} }

/********** build **********/

// Write replaces the archive at path. The document goes to a temporary file
// in the same directory which is then renamed over path, so readers and
// concurrent writers only ever see a complete archive.
func (s *Store) Write(path string, a domain.Archive) (err error) {
	// encode first so a failure never touches an existing archive
	body, err := bson.Marshal(encodeArchive(a))
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("open archive for write: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = w.WriteString(signature); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if _, err = w.Write(body); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err = f.Chmod(s.perm); err != nil {
		return fmt.Errorf("chmod archive: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}

func encodeArchive(a domain.Archive) archiveDoc {
	p := a.Properties
	doc := archiveDoc{
		Properties: propertiesDoc{
			Zpid:         nonNil(p.Zpid),
			Price:        nonNil(p.Price),
			Bedrooms:     nonNil(p.Bedrooms),
			Bathrooms:    nonNil(p.Bathrooms),
			LivingArea:   nonNil(p.LivingArea),
			Latitude:     nonNil(p.Latitude),
			Longitude:    nonNil(p.Longitude),
			PricePerSqft: nonNil(p.PricePerSqft),
			City:         nonNil(p.City),
			State:        nonNil(p.State),
			HomeType:     nonNil(p.HomeType),
		},
		GlobalMetrics: globalMetricsDoc{
			TotalProperties:     a.Metrics.TotalProperties,
			AveragePrice:        a.Metrics.AveragePrice,
			MedianPrice:         a.Metrics.MedianPrice,
			AverageLivingArea:   a.Metrics.AverageLivingArea,
			AveragePricePerSqft: a.Metrics.AveragePricePerSqft,
		},
	}

	agg := a.Aggregations
	ad := aggregationsDoc{
		CityNames:        make([]string, 0, len(agg.Cities)),
		CityCounts:       make([]int64, 0, len(agg.Cities)),
		CityAvgPrice:     make([]float64, 0, len(agg.Cities)),
		CityAvgSqft:      make([]float64, 0, len(agg.Cities)),
		HomeTypes:        make([]string, 0, len(agg.HomeTypes)),
		HomeTypeCounts:   make([]int64, 0, len(agg.HomeTypes)),
		HomeTypeAvgPrice: make([]float64, 0, len(agg.HomeTypes)),
		BedroomBands:     make([]string, 0, len(agg.BedroomBands)),
		BedroomCounts:    make([]int64, 0, len(agg.BedroomBands)),
		PriceQuartiles:   agg.PriceQuartiles[:],
		PricePerSqftMean: []float64{agg.PricePerSqftMean},
	}
	for _, c := range agg.Cities {
		ad.CityNames = append(ad.CityNames, c.City)
		ad.CityCounts = append(ad.CityCounts, c.Count)
		ad.CityAvgPrice = append(ad.CityAvgPrice, c.AveragePrice)
		ad.CityAvgSqft = append(ad.CityAvgSqft, c.AverageLivingArea)
	}
	for _, h := range agg.HomeTypes {
		ad.HomeTypes = append(ad.HomeTypes, h.HomeType)
		ad.HomeTypeCounts = append(ad.HomeTypeCounts, h.Count)
		ad.HomeTypeAvgPrice = append(ad.HomeTypeAvgPrice, h.AveragePrice)
	}
	for _, b := range agg.BedroomBands {
		ad.BedroomBands = append(ad.BedroomBands, b.Band)
		ad.BedroomCounts = append(ad.BedroomCounts, b.Count)
	}
	doc.Aggregations = ad
	return doc
}

// nonNil keeps empty columns as empty arrays instead of BSON null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

/********** read **********/

// Info stats the archive without opening it.
func (s *Store) Info(path string) (domain.ArchiveInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ArchiveInfo{}, fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, path)
		}
		return domain.ArchiveInfo{}, err
	}
	return domain.ArchiveInfo{Path: path, Size: st.Size(), ModTime: st.ModTime()}, nil
}

// load checks existence, then reads the whole document through a read-only handle.
func (s *Store) load(path string) (bson.Raw, error) {
	if _, err := s.Info(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	body, ok := bytes.CutPrefix(data, []byte(signature))
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrBadSignature)
	}
	raw := bson.Raw(body)
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("%s: corrupt archive: %w", path, err)
	}
	return raw, nil
}

func section(raw bson.Raw, name string, out any) error {
	v, err := raw.LookupErr(name)
	if err != nil {
		return fmt.Errorf("missing %s section: %w", name, err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode %s section: %w", name, err)
	}
	return nil
}

// ReadAggregates decodes the aggregations and global_metrics sections. The
// properties section is left untouched.
func (s *Store) ReadAggregates(path string) (domain.StoredAggregates, error) {
	raw, err := s.load(path)
	if err != nil {
		return domain.StoredAggregates{}, err
	}

	var ad aggregationsDoc
	if err := section(raw, sectionAggregations, &ad); err != nil {
		return domain.StoredAggregates{}, fmt.Errorf("%s: %w", path, err)
	}
	agg, err := decodeAggregations(ad)
	if err != nil {
		return domain.StoredAggregates{}, fmt.Errorf("%s: %w", path, err)
	}

	totals, err := decodeAttributes(raw)
	if err != nil {
		return domain.StoredAggregates{}, fmt.Errorf("%s: %w", path, err)
	}
	return domain.StoredAggregates{Aggregations: agg, MarketTotals: totals}, nil
}

func decodeAggregations(ad aggregationsDoc) (domain.Aggregations, error) {
	nc := len(ad.CityNames)
	if len(ad.CityCounts) != nc || len(ad.CityAvgPrice) != nc || len(ad.CityAvgSqft) != nc {
		return domain.Aggregations{}, errors.New("city tables have mismatched lengths")
	}
	nh := len(ad.HomeTypes)
	if len(ad.HomeTypeCounts) != nh || len(ad.HomeTypeAvgPrice) != nh {
		return domain.Aggregations{}, errors.New("home type tables have mismatched lengths")
	}
	if len(ad.BedroomCounts) != len(ad.BedroomBands) {
		return domain.Aggregations{}, errors.New("bedroom tables have mismatched lengths")
	}
	if len(ad.PriceQuartiles) != 5 {
		return domain.Aggregations{}, fmt.Errorf("price_quartiles has %d values, want 5", len(ad.PriceQuartiles))
	}
	if len(ad.PricePerSqftMean) != 1 {
		return domain.Aggregations{}, fmt.Errorf("price_per_sqft_mean has %d values, want 1", len(ad.PricePerSqftMean))
	}
	for _, col := range [][]string{ad.CityNames, ad.HomeTypes, ad.BedroomBands} {
		if err := checkUTF8(col); err != nil {
			return domain.Aggregations{}, err
		}
	}

	agg := domain.Aggregations{
		Cities:           make([]domain.CityStat, 0, nc),
		HomeTypes:        make([]domain.HomeTypeStat, 0, nh),
		BedroomBands:     make([]domain.BedroomBand, 0, len(ad.BedroomBands)),
		PricePerSqftMean: ad.PricePerSqftMean[0],
	}
	copy(agg.PriceQuartiles[:], ad.PriceQuartiles)
	for i, name := range ad.CityNames {
		agg.Cities = append(agg.Cities, domain.CityStat{
			City:              name,
			Count:             ad.CityCounts[i],
			AveragePrice:      ad.CityAvgPrice[i],
			AverageLivingArea: ad.CityAvgSqft[i],
		})
	}
	for i, name := range ad.HomeTypes {
		agg.HomeTypes = append(agg.HomeTypes, domain.HomeTypeStat{
			HomeType:     name,
			Count:        ad.HomeTypeCounts[i],
			AveragePrice: ad.HomeTypeAvgPrice[i],
		})
	}
	for i, band := range ad.BedroomBands {
		agg.BedroomBands = append(agg.BedroomBands, domain.BedroomBand{Band: band, Count: ad.BedroomCounts[i]})
	}
	return agg, nil
}

// decodeAttributes returns every numeric global_metrics attribute as a float.
func decodeAttributes(raw bson.Raw) (map[string]float64, error) {
	v, err := raw.LookupErr(sectionGlobalMetrics)
	if err != nil {
		return nil, fmt.Errorf("missing %s section: %w", sectionGlobalMetrics, err)
	}
	doc, ok := v.DocumentOK()
	if !ok {
		return nil, fmt.Errorf("%s is not a document", sectionGlobalMetrics)
	}
	elems, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", sectionGlobalMetrics, err)
	}

	out := make(map[string]float64, len(elems))
	for _, e := range elems {
		key := e.Key()
		if !utf8.ValidString(key) {
			return nil, fmt.Errorf("attribute name is not valid UTF-8: %q", key)
		}
		val := e.Value()
		switch val.Type {
		case bson.TypeDouble:
			out[key] = val.Double()
		case bson.TypeInt64:
			out[key] = float64(val.Int64())
		case bson.TypeInt32:
			out[key] = float64(val.Int32())
		default:
			return nil, fmt.Errorf("attribute %s has non-numeric type %s", key, val.Type)
		}
	}
	return out, nil
}

func checkUTF8(col []string) error {
	for _, s := range col {
		if !utf8.ValidString(s) {
			return fmt.Errorf("text value is not valid UTF-8: %q", s)
		}
	}
	return nil
}

// ReadProperties decodes the raw per-property columns.
func (s *Store) ReadProperties(path string) (domain.PropertyColumns, error) {
	raw, err := s.load(path)
	if err != nil {
		return domain.PropertyColumns{}, err
	}
	var pd propertiesDoc
	if err := section(raw, sectionProperties, &pd); err != nil {
		return domain.PropertyColumns{}, fmt.Errorf("%s: %w", path, err)
	}

	n := len(pd.Zpid)
	for _, l := range []int{
		len(pd.Price), len(pd.Bedrooms), len(pd.Bathrooms), len(pd.LivingArea),
		len(pd.Latitude), len(pd.Longitude), len(pd.PricePerSqft),
		len(pd.City), len(pd.State), len(pd.HomeType),
	} {
		if l != n {
			return domain.PropertyColumns{}, fmt.Errorf("%s: property columns have mismatched lengths", path)
		}
	}
	for _, col := range [][]string{pd.City, pd.State, pd.HomeType} {
		if err := checkUTF8(col); err != nil {
			return domain.PropertyColumns{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	return domain.PropertyColumns{
		Zpid:         pd.Zpid,
		Price:        pd.Price,
		Bedrooms:     pd.Bedrooms,
		Bathrooms:    pd.Bathrooms,
		LivingArea:   pd.LivingArea,
		Latitude:     pd.Latitude,
		Longitude:    pd.Longitude,
		PricePerSqft: pd.PricePerSqft,
		City:         pd.City,
		State:        pd.State,
		HomeType:     pd.HomeType,
	}, nil
}

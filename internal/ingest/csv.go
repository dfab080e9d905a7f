package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// Row is one parsed line of the reviews dataset before cleaning. Price is
// nil when the column is empty.
type Row struct {
	Title       string
	Country     string
	Province    string
	Region      string
	Winery      string
	Variety     string
	Designation string
	Points      int
	Price       *float64
}

type columns struct {
	title, country, province, region, winery, variety, designation, points, price int
}

var requiredColumns = []string{"country", "points", "price", "title", "winery"}

func mapColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return columns{}, fmt.Errorf("missing column %q", name)
		}
	}
	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}
	return columns{
		title:       index["title"],
		country:     index["country"],
		province:    lookup("province"),
		region:      lookup("region_1"),
		winery:      index["winery"],
		variety:     lookup("variety"),
		designation: lookup("designation"),
		points:      index["points"],
		price:       index["price"],
	}, nil
}

// ReadCSV parses the reviews dataset. Lines with unparsable points or price
// are skipped; the returned rows keep file order.
func ReadCSV(ctx context.Context, filename string) ([]Row, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return parse(ctx, file)
}

func parse(ctx context.Context, r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	batch := make([][]string, 0, batchSize)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line: %w", err)
		}
		batch = append(batch, record)

		if len(batch) >= batchSize {
			parsed, err := parseBatch(ctx, batch, cols)
			if err != nil {
				return nil, err
			}
			rows = append(rows, parsed...)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		parsed, err := parseBatch(ctx, batch, cols)
		if err != nil {
			return nil, err
		}
		rows = append(rows, parsed...)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no valid records found")
	}
	return rows, nil
}

// parseBatch converts a batch concurrently. Each worker writes its own slot
// so the batch order survives.
func parseBatch(ctx context.Context, batch [][]string, cols columns) ([]Row, error) {
	type slot struct {
		row   Row
		valid bool
	}
	slots := make([]slot, len(batch))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	chunk := (len(batch) + maxWorkers - 1) / maxWorkers
	for start := 0; start < len(batch); start += chunk {
		end := min(start+chunk, len(batch))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				row, err := parseRow(batch[i], cols)
				if err != nil {
					continue
				}
				slots[i] = slot{row: row, valid: true}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(slots))
	for _, s := range slots {
		if s.valid {
			out = append(out, s.row)
		}
	}
	return out, nil
}

func parseRow(record []string, cols columns) (Row, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	points, err := strconv.Atoi(field(cols.points))
	if err != nil {
		return Row{}, fmt.Errorf("points: %w", err)
	}

	row := Row{
		Title:       field(cols.title),
		Country:     field(cols.country),
		Province:    field(cols.province),
		Region:      field(cols.region),
		Winery:      field(cols.winery),
		Variety:     field(cols.variety),
		Designation: field(cols.designation),
		Points:      points,
	}

	if raw := field(cols.price); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Row{}, fmt.Errorf("price: %w", err)
		}
		row.Price = &price
	}
	return row, nil
}

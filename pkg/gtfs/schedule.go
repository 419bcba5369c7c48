package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

var ErrMissingFile = errors.New("missing gtfs file")

type Schedule struct {
	Agencies      []Agency
	Stops         []Stop
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
	Transfers     []Transfer

	FareAttributes []FareAttribute
	FareRules      []FareRule
}

var requiredFiles = []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"}

func (gtfs *Schedule) fileMap() map[string]interface{} {
	return map[string]interface{}{
		"agency.txt":          &gtfs.Agencies,
		"stops.txt":           &gtfs.Stops,
		"routes.txt":          &gtfs.Routes,
		"trips.txt":           &gtfs.Trips,
		"stop_times.txt":      &gtfs.StopTimes,
		"calendar.txt":        &gtfs.Calendars,
		"calendar_dates.txt":  &gtfs.CalendarDates,
		"transfers.txt":       &gtfs.Transfers,
		"fare_attributes.txt": &gtfs.FareAttributes,
		"fare_rules.txt":      &gtfs.FareRules,
	}
}

func init() {
	// Allow us to ignore those naughty records that have missing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})
}

// Open reads a feed from either a zip archive or a directory of txt files.
func Open(path string) (*Schedule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	schedule := &Schedule{}
	if info.IsDir() {
		err = schedule.ParseDirectory(path)
	} else {
		var file *os.File
		file, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		err = schedule.ParseFile(file, info.Size())
	}
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

// ParseFile reads a zipped feed.
func (gtfs *Schedule) ParseFile(reader io.ReaderAt, size int64) error {
	archive, err := zip.NewReader(reader, size)
	if err != nil {
		return err
	}

	fileMap := gtfs.fileMap()
	loaded := map[string]bool{}

	for _, zipFile := range archive.File {
		fileName := filepath.Base(zipFile.Name)
		destination, exists := fileMap[fileName]
		if !exists {
			log.Debug().Str("file", zipFile.Name).Msg("Skipping gtfs file")
			continue
		}

		log.Info().Str("file", fileName).Msg("Loading file")

		fileReader, err := zipFile.Open()
		if err != nil {
			return err
		}

		err = gocsv.Unmarshal(fileReader, destination)
		fileReader.Close()
		if err != nil {
			log.Error().Str("file", fileName).Err(err).Msg("Failed to parse csv file")
			return fmt.Errorf("%s: %w", fileName, err)
		}

		loaded[fileName] = true
	}

	return checkRequired(loaded)
}

// ParseDirectory reads an unzipped feed.
func (gtfs *Schedule) ParseDirectory(directory string) error {
	loaded := map[string]bool{}

	for fileName, destination := range gtfs.fileMap() {
		file, err := os.Open(filepath.Join(directory, fileName))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}

		log.Info().Str("file", fileName).Msg("Loading file")

		err = gocsv.Unmarshal(file, destination)
		file.Close()
		if err != nil {
			log.Error().Str("file", fileName).Err(err).Msg("Failed to parse csv file")
			return fmt.Errorf("%s: %w", fileName, err)
		}

		loaded[fileName] = true
	}

	return checkRequired(loaded)
}

func checkRequired(loaded map[string]bool) error {
	var missing []error
	for _, fileName := range requiredFiles {
		if !loaded[fileName] {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingFile, fileName))
		}
	}
	return errors.Join(missing...)
}

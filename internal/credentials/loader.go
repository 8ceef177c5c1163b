package credentials

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultSecretColumnConstant         = "Passphrase"
	defaultVLANColumnConstant           = "VLAN ID"
	defaultUserNameColumnConstant       = "User Name"
	loadingStartedMessageConstant       = "Reading credential export"
	loadingCompletedMessageConstant     = "Credential export loaded"
	duplicateSecretMessageConstant      = "Duplicate secret replaced earlier row"
	loadingRowMessageConstant           = "Credential row loaded"
	logFieldSourceConstant              = "source"
	logFieldRowConstant                 = "row"
	logFieldRecordCountConstant         = "records"
	logFieldRowCountConstant            = "rows"
	logFieldMigrationIdentifierConstant = "migration_id"
	logFieldSecretConstant              = "secret"
	headerStartRowNumberConstant        = 0
)

var utf8ByteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// LoaderOptions names the export columns carrying the required values.
type LoaderOptions struct {
	SecretColumn   string
	VLANColumn     string
	UserNameColumn string
}

// DefaultLoaderOptions returns the column names used by controller exports.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		SecretColumn:   defaultSecretColumnConstant,
		VLANColumn:     defaultVLANColumnConstant,
		UserNameColumn: defaultUserNameColumnConstant,
	}
}

func (options LoaderOptions) sanitize() LoaderOptions {
	defaults := DefaultLoaderOptions()
	sanitized := LoaderOptions{
		SecretColumn:   strings.TrimSpace(options.SecretColumn),
		VLANColumn:     strings.TrimSpace(options.VLANColumn),
		UserNameColumn: strings.TrimSpace(options.UserNameColumn),
	}
	if len(sanitized.SecretColumn) == 0 {
		sanitized.SecretColumn = defaults.SecretColumn
	}
	if len(sanitized.VLANColumn) == 0 {
		sanitized.VLANColumn = defaults.VLANColumn
	}
	if len(sanitized.UserNameColumn) == 0 {
		sanitized.UserNameColumn = defaults.UserNameColumn
	}
	return sanitized
}

// ProgressReporter is notified once per processed row. Completed is called once the header is
// accepted and row processing ends, whether or not every row loaded.
type ProgressReporter interface {
	RowProcessed()
	Completed()
}

// LoaderDependencies configures a Loader.
type LoaderDependencies struct {
	Logger            *zap.Logger
	IdentityGenerator IdentityGenerator
	Progress          ProgressReporter
	Options           LoaderOptions
}

// Loader converts credential exports into record sets.
type Loader struct {
	logger            *zap.Logger
	identityGenerator IdentityGenerator
	progress          ProgressReporter
	options           LoaderOptions
}

// NewLoader constructs a Loader, substituting defaults for missing dependencies.
func NewLoader(dependencies LoaderDependencies) *Loader {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identityGenerator := dependencies.IdentityGenerator
	if identityGenerator == nil {
		identityGenerator = NewIdentityGenerator()
	}
	progress := dependencies.Progress
	if progress == nil {
		progress = silentProgress{}
	}
	return &Loader{
		logger:            logger,
		identityGenerator: identityGenerator,
		progress:          progress,
		options:           dependencies.Options.sanitize(),
	}
}

// Load reads the export at path.
func (loader *Loader) Load(path string, runContext RunContext) (RecordSet, error) {
	file, openError := os.Open(path)
	if openError != nil {
		return nil, LoadError{Path: path, Kind: ErrSourceUnreadable, Cause: openError}
	}
	defer file.Close()

	return loader.LoadReader(file, path, runContext)
}

// LoadReader reads an export from reader. sourceName identifies the source in errors and logs.
// No partial set is returned on failure.
func (loader *Loader) LoadReader(reader io.Reader, sourceName string, runContext RunContext) (RecordSet, error) {
	loader.logger.Info(loadingStartedMessageConstant, zap.String(logFieldSourceConstant, sourceName))

	csvReader := csv.NewReader(skipByteOrderMark(reader))
	csvReader.LazyQuotes = true

	header, headerError := csvReader.Read()
	if headerError != nil {
		if errors.Is(headerError, io.EOF) {
			return nil, LoadError{Path: sourceName, Column: loader.options.SecretColumn, Kind: ErrMissingColumn}
		}
		return nil, classifyReadError(sourceName, headerStartRowNumberConstant, headerError)
	}

	columnIndexes := make(map[string]int, len(header))
	for columnIndex, columnName := range header {
		columnIndexes[strings.TrimSpace(columnName)] = columnIndex
	}

	for _, requiredColumn := range []string{loader.options.SecretColumn, loader.options.VLANColumn, loader.options.UserNameColumn} {
		if _, present := columnIndexes[requiredColumn]; !present {
			return nil, LoadError{Path: sourceName, Column: requiredColumn, Kind: ErrMissingColumn}
		}
	}

	records := make(RecordSet)
	rowNumber := 0
	for {
		fields, readError := csvReader.Read()
		if errors.Is(readError, io.EOF) {
			break
		}
		rowNumber++
		if readError != nil {
			loader.progress.Completed()
			return nil, classifyReadError(sourceName, rowNumber, readError)
		}

		record, recordError := loader.buildRecord(header, fields, columnIndexes, runContext)
		if recordError != nil {
			recordError.Path = sourceName
			recordError.Row = rowNumber
			loader.progress.Completed()
			return nil, *recordError
		}

		if _, duplicate := records[record.Secret]; duplicate {
			loader.logger.Debug(
				duplicateSecretMessageConstant,
				zap.Int(logFieldRowConstant, rowNumber),
				zap.String(logFieldSecretConstant, MaskSecret(record.Secret)),
			)
		}
		records[record.Secret] = record
		loader.progress.RowProcessed()
	}
	loader.progress.Completed()

	loader.logger.Info(
		loadingCompletedMessageConstant,
		zap.String(logFieldSourceConstant, sourceName),
		zap.Int(logFieldRowCountConstant, rowNumber),
		zap.Int(logFieldRecordCountConstant, len(records)),
	)

	return records, nil
}

func (loader *Loader) buildRecord(header []string, fields []string, columnIndexes map[string]int, runContext RunContext) (Record, *LoadError) {
	secret := fields[columnIndexes[loader.options.SecretColumn]]
	if len(secret) == 0 {
		return Record{}, &LoadError{Column: loader.options.SecretColumn, Kind: ErrMissingField}
	}

	attributes := make(map[string]string, len(header)-1)
	for columnIndex, columnName := range header {
		if columnIndex == columnIndexes[loader.options.SecretColumn] {
			continue
		}
		attributes[strings.TrimSpace(columnName)] = fields[columnIndex]
	}

	migrationIdentifier := loader.identityGenerator.GenerateIdentity(runContext)
	loader.logger.Debug(
		loadingRowMessageConstant,
		zap.String(logFieldMigrationIdentifierConstant, migrationIdentifier),
		zap.String(logFieldSecretConstant, MaskSecret(secret)),
	)

	return Record{
		Secret:              secret,
		VLANIdentifier:      attributes[loader.options.VLANColumn],
		UserName:            attributes[loader.options.UserNameColumn],
		MigrationIdentifier: migrationIdentifier,
		Attributes:          attributes,
	}, nil
}

func classifyReadError(sourceName string, rowNumber int, readError error) error {
	var parseError *csv.ParseError
	if errors.As(readError, &parseError) {
		return LoadError{Path: sourceName, Row: rowNumber, Kind: ErrMalformedRow, Cause: readError}
	}
	return LoadError{Path: sourceName, Row: rowNumber, Kind: ErrSourceUnreadable, Cause: readError}
}

func skipByteOrderMark(reader io.Reader) io.Reader {
	bufferedReader := bufio.NewReader(reader)
	prefix, peekError := bufferedReader.Peek(len(utf8ByteOrderMark))
	if peekError == nil && bytes.Equal(prefix, utf8ByteOrderMark) {
		_, _ = bufferedReader.Discard(len(utf8ByteOrderMark))
	}
	return bufferedReader
}

type silentProgress struct{}

func (silentProgress) RowProcessed() {}

func (silentProgress) Completed() {}

package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// Executor is the subset of the RDS Data API client used by DataAPIStore.
type Executor interface {
	ExecuteStatement(ctx context.Context, params *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error)
}

// DataAPIStore runs statements against an Aurora cluster through the Data API.
type DataAPIStore struct {
	API        Executor
	ClusterARN string
	SecretARN  string
	Database   string
}

// InsertPhoto inserts p and returns the generated id.
func (s *DataAPIStore) InsertPhoto(ctx context.Context, p models.PhotoRecord) (int64, error) {
	params := insertParams(p)
	sql := insertSQL(params, func(_ int, name string) string { return ":" + name })

	sqlParams := make([]types.SqlParameter, 0, len(params))
	for _, prm := range params {
		sp, err := toSQLParameter(prm)
		if err != nil {
			return 0, err
		}
		sqlParams = append(sqlParams, sp)
	}

	out, err := s.execute(ctx, sql, sqlParams)
	if err != nil {
		return 0, fmt.Errorf("insert photo: %w", err)
	}
	if len(out.Records) == 0 || len(out.Records[0]) == 0 {
		return 0, ErrNoRowReturned
	}
	id, ok := longValue(out.Records[0][0])
	if !ok {
		return 0, ErrNoRowReturned
	}
	return id, nil
}

// FindPhoto looks a photo up by its composite key.
func (s *DataAPIStore) FindPhoto(ctx context.Context, companyID, photoID int64) (models.PhotoRecord, error) {
	sql := "SELECT " + selectColumns + " FROM photos WHERE company_id = :company_id AND id = :id"
	return s.queryOne(ctx, sql, []types.SqlParameter{
		{Name: aws.String("company_id"), Value: &types.FieldMemberLongValue{Value: companyID}},
		{Name: aws.String("id"), Value: &types.FieldMemberLongValue{Value: photoID}},
	})
}

// GetPhoto looks a photo up by id alone.
func (s *DataAPIStore) GetPhoto(ctx context.Context, photoID int64) (models.PhotoRecord, error) {
	sql := "SELECT " + selectColumns + " FROM photos WHERE id = :id"
	return s.queryOne(ctx, sql, []types.SqlParameter{
		{Name: aws.String("id"), Value: &types.FieldMemberLongValue{Value: photoID}},
	})
}

func (s *DataAPIStore) queryOne(ctx context.Context, sql string, params []types.SqlParameter) (models.PhotoRecord, error) {
	out, err := s.execute(ctx, sql, params)
	if err != nil {
		return models.PhotoRecord{}, fmt.Errorf("select photo: %w", err)
	}
	if len(out.Records) == 0 {
		return models.PhotoRecord{}, ErrNotFound
	}
	return decodeRecord(out.Records[0])
}

func (s *DataAPIStore) execute(ctx context.Context, sql string, params []types.SqlParameter) (*rdsdata.ExecuteStatementOutput, error) {
	return s.API.ExecuteStatement(ctx, &rdsdata.ExecuteStatementInput{
		ResourceArn: aws.String(s.ClusterARN),
		SecretArn:   aws.String(s.SecretARN),
		Database:    aws.String(s.Database),
		Sql:         aws.String(sql),
		Parameters:  params,
	})
}

func toSQLParameter(p param) (types.SqlParameter, error) {
	sp := types.SqlParameter{Name: aws.String(p.name)}
	switch v := p.value.(type) {
	case nil:
		sp.Value = &types.FieldMemberIsNull{Value: true}
	case string:
		sp.Value = &types.FieldMemberStringValue{Value: v}
	case int64:
		sp.Value = &types.FieldMemberLongValue{Value: v}
	case float64:
		sp.Value = &types.FieldMemberDoubleValue{Value: v}
	case time.Time:
		sp.Value = &types.FieldMemberStringValue{Value: formatTimestamp(v)}
		sp.TypeHint = types.TypeHintTimestamp
	default:
		return sp, fmt.Errorf("unsupported parameter %s of type %T", p.name, v)
	}
	return sp, nil
}

func decodeRecord(f []types.Field) (models.PhotoRecord, error) {
	if len(f) < 19 {
		return models.PhotoRecord{}, fmt.Errorf("decode photo: got %d columns", len(f))
	}
	var (
		p   models.PhotoRecord
		err error
	)
	p.ID, _ = longValue(f[0])
	p.UserID, _ = longValue(f[1])
	p.CompanyID, _ = longValue(f[2])
	p.ProjectTableName = stringPtr(f[3])
	p.ClientSideID = stringPtr(f[4])
	p.Title = stringPtr(f[5])
	p.Description = stringPtr(f[6])
	p.Format = stringPtr(f[7])
	p.Size = longPtr(f[8])
	p.SourceResolutionX = longPtr(f[9])
	p.SourceResolutionY = longPtr(f[10])
	if p.DateTaken, err = timePtr(f[11]); err != nil {
		return p, fmt.Errorf("decode date_taken: %w", err)
	}
	p.Latitude = doublePtr(f[12])
	p.Longitude = doublePtr(f[13])
	p.Models = splitModels(stringPtr(f[14]))
	p.S3Key = derefString(stringPtr(f[15]))
	p.S3URL = derefString(stringPtr(f[16]))
	p.ContentType = derefString(stringPtr(f[17]))
	uploaded, err := timePtr(f[18])
	if err != nil {
		return p, fmt.Errorf("decode date_uploaded: %w", err)
	}
	if uploaded != nil {
		p.DateUploaded = *uploaded
	}
	return p, nil
}

func longValue(f types.Field) (int64, bool) {
	v, ok := f.(*types.FieldMemberLongValue)
	if !ok {
		return 0, false
	}
	return v.Value, true
}

func longPtr(f types.Field) *int64 {
	if v, ok := longValue(f); ok {
		return &v
	}
	return nil
}

func doublePtr(f types.Field) *float64 {
	switch v := f.(type) {
	case *types.FieldMemberDoubleValue:
		return &v.Value
	case *types.FieldMemberLongValue:
		x := float64(v.Value)
		return &x
	}
	return nil
}

func stringPtr(f types.Field) *string {
	if v, ok := f.(*types.FieldMemberStringValue); ok {
		return &v.Value
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timePtr(f types.Field) (*time.Time, error) {
	s := stringPtr(f)
	if s == nil {
		return nil, nil
	}
	t, err := time.ParseInLocation(timestampLayout, *s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	qdrantRecordKey  = "record"
	qdrantScrollPage = 256
)

// QdrantResultStore keeps each result as one point. The full record lives in
// the payload as JSON; the vector is the band one-hot scaled by the final CF,
// which lets dashboards run nearest-neighbour queries over severity.
type QdrantResultStore struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewQdrantResultStore dials Qdrant over gRPC. With an API key the connection
// uses TLS and sends the key as metadata; without one it is plaintext.
func NewQdrantResultStore(ctx context.Context, url, apiKey, collection string, logger *zap.Logger) (*QdrantResultStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialOpts []grpc.DialOption
	if apiKey != "" {
		logger.Info("connecting to Qdrant over TLS", zap.String("url", url))
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
		authInterceptor := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(authInterceptor))
	} else {
		logger.Info("connecting to local Qdrant", zap.String("url", url))
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(url, dialOpts...)
	if err != nil {
		return nil, apperrors.StoreUnavailable("open", fmt.Errorf("create qdrant client: %w", err))
	}

	s := &QdrantResultStore{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
		logger:      logger,
		now:         storeClock,
		newID:       newResultID,
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantResultStore) ensureCollection(ctx context.Context) error {
	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collections.List(listCtx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return apperrors.StoreUnavailable("open", fmt.Errorf("list qdrant collections: %w", err))
	}
	for _, c := range res.GetCollections() {
		if c.GetName() == s.collection {
			s.logger.Debug("qdrant collection exists", zap.String("collection", s.collection))
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(len(models.AddictionLevels)),
					Distance: qdrant.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return apperrors.StoreUnavailable("open", fmt.Errorf("create qdrant collection %s: %w", s.collection, err))
	}
	s.logger.Info("qdrant collection created", zap.String("collection", s.collection))
	return nil
}

func severityVector(r models.DiagnosisResult) []float32 {
	v := make([]float32, len(models.AddictionLevels))
	if idx := r.AddictionLevel.Index(); idx >= 0 {
		v[idx] = float32(r.CFCombinedFinal)
	}
	return v
}

func pointID(id string) *qdrant.PointId {
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}}
}

func (s *QdrantResultStore) Create(ctx context.Context, result models.DiagnosisResult) (string, error) {
	result = cloneResult(result)
	result.ID = s.newID()
	result.CreatedAt = s.now()

	record, err := json.Marshal(result)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode result")
	}

	payload := map[string]*qdrant.Value{
		qdrantRecordKey:   {Kind: &qdrant.Value_StringValue{StringValue: string(record)}},
		"hypothesis_code": {Kind: &qdrant.Value_StringValue{StringValue: result.HypothesisCode}},
		"addiction_level": {Kind: &qdrant.Value_StringValue{StringValue: string(result.AddictionLevel)}},
		"cf_percentage":   {Kind: &qdrant.Value_DoubleValue{DoubleValue: result.CFPercentage}},
		"created_at":      {Kind: &qdrant.Value_StringValue{StringValue: result.CreatedAt.Format(createdAtLayout)}},
	}

	wait := true
	_, err = s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id: pointID(result.ID),
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: severityVector(result)}},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		s.logger.Error("qdrant upsert failed", zap.String("id", result.ID), zap.Error(err))
		return "", apperrors.StoreUnavailable("create", err)
	}
	return result.ID, nil
}

func decodePoint(p *qdrant.RetrievedPoint) (models.DiagnosisResult, error) {
	raw := p.GetPayload()[qdrantRecordKey].GetStringValue()
	var r models.DiagnosisResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return models.DiagnosisResult{}, fmt.Errorf("decode point %s: %w", p.GetId().GetUuid(), err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (s *QdrantResultStore) Get(ctx context.Context, id string) (models.DiagnosisResult, error) {
	// Qdrant rejects ids that are not UUIDs, which for us simply means absent.
	if _, err := uuid.Parse(id); err != nil {
		return models.DiagnosisResult{}, apperrors.NotFound("result", id)
	}
	res, err := s.points.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return models.DiagnosisResult{}, apperrors.StoreUnavailable("get", err)
	}
	if len(res.GetResult()) == 0 {
		return models.DiagnosisResult{}, apperrors.NotFound("result", id)
	}
	r, err := decodePoint(res.GetResult()[0])
	if err != nil {
		return models.DiagnosisResult{}, apperrors.StoreUnavailable("get", err)
	}
	return r, nil
}

// Delete reports NOT_FOUND for absent ids; Qdrant itself deletes silently.
func (s *QdrantResultStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	wait := true
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{pointID(id)}},
			},
		},
	})
	if err != nil {
		return apperrors.StoreUnavailable("delete", err)
	}
	return nil
}

func (s *QdrantResultStore) ListAll(ctx context.Context) ([]models.DiagnosisResult, error) {
	var (
		out    []models.DiagnosisResult
		offset *qdrant.PointId
	)
	limit := uint32(qdrantScrollPage)
	for {
		res, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, apperrors.StoreUnavailable("list", err)
		}
		for _, p := range res.GetResult() {
			r, err := decodePoint(p)
			if err != nil {
				return nil, apperrors.StoreUnavailable("list", err)
			}
			out = append(out, r)
		}
		offset = res.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	sortResults(out)
	return out, nil
}

func (s *QdrantResultStore) Close() error {
	return s.conn.Close()
}

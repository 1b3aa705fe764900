package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"photoGalleryAi/internal/media"
)

// VertexImagenConfig describes how to connect to Imagen.
type VertexImagenConfig struct {
	ProjectID          string
	Location           string
	Model              string
	GenerateModel      string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

type predictor interface {
	Predict(ctx context.Context, req *aiplatformpb.PredictRequest, opts ...gax.CallOption) (*aiplatformpb.PredictResponse, error)
	Close() error
}

// VertexImagen renders and edits images with Vertex AI Imagen and stores the results in the
// blob store.
type VertexImagen struct {
	cfg       VertexImagenConfig
	store     media.Store
	newClient func(ctx context.Context) (predictor, error)
}

// NewVertexImagen wires a VertexImagen client.
func NewVertexImagen(cfg VertexImagenConfig, store media.Store) *VertexImagen {
	cfg = VertexImagenConfig{
		ProjectID:          strings.TrimSpace(cfg.ProjectID),
		Location:           strings.TrimSpace(cfg.Location),
		Model:              strings.TrimSpace(cfg.Model),
		GenerateModel:      strings.TrimSpace(cfg.GenerateModel),
		APIKey:             strings.TrimSpace(cfg.APIKey),
		ServiceAccount:     strings.TrimSpace(cfg.ServiceAccount),
		ServiceAccountJSON: strings.TrimSpace(cfg.ServiceAccountJSON),
	}
	v := &VertexImagen{cfg: cfg, store: store}
	v.newClient = v.dial
	return v
}

// Generate renders one image from the prompt alone.
func (v *VertexImagen) Generate(ctx context.Context, prompt string) (string, error) {
	model := v.cfg.GenerateModel
	if model == "" {
		model = v.cfg.Model
	}
	return v.predict(ctx, model, prompt, map[string]any{"prompt": prompt}, map[string]any{
		"sampleCount": 1,
	})
}

// Edit runs a free-form inpainting request against source.
func (v *VertexImagen) Edit(ctx context.Context, prompt string, source []byte) (string, error) {
	if len(source) == 0 {
		return "", fmt.Errorf("imagen: reference image is required")
	}
	instance := map[string]any{
		"prompt": prompt,
		"image": map[string]any{
			"bytesBase64Encoded": base64.StdEncoding.EncodeToString(source),
		},
	}
	return v.predict(ctx, v.cfg.Model, prompt, instance, map[string]any{
		"sampleCount": 1,
		"editMode":    "inpainting-free-form",
	})
}

func (v *VertexImagen) predict(ctx context.Context, model, prompt string, instance, params map[string]any) (string, error) {
	if v == nil || v.store == nil {
		return "", fmt.Errorf("imagen: client not configured")
	}
	if v.cfg.ProjectID == "" || v.cfg.Location == "" || model == "" {
		return "", fmt.Errorf("imagen: missing project/location/model")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("imagen: prompt is required")
	}

	instanceValue, err := structpb.NewValue(instance)
	if err != nil {
		return "", fmt.Errorf("imagen: encode instance: %w", err)
	}
	paramsValue, err := structpb.NewValue(params)
	if err != nil {
		return "", fmt.Errorf("imagen: encode parameters: %w", err)
	}

	client, err := v.newClient(ctx)
	if err != nil {
		return "", fmt.Errorf("imagen: prediction client: %w", err)
	}
	defer client.Close()

	resp, err := client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", v.cfg.ProjectID, v.cfg.Location, model),
		Instances:  []*structpb.Value{instanceValue},
		Parameters: paramsValue,
	})
	if err != nil {
		return "", fmt.Errorf("imagen: predict: %w", err)
	}
	if len(resp.Predictions) == 0 {
		return "", fmt.Errorf("imagen: empty prediction response")
	}

	fields := resp.Predictions[0].GetStructValue().GetFields()
	encoded := fields["bytesBase64Encoded"]
	if encoded == nil {
		return "", fmt.Errorf("imagen: prediction missing bytes")
	}
	data, err := base64.StdEncoding.DecodeString(encoded.GetStringValue())
	if err != nil {
		return "", fmt.Errorf("imagen: decode result: %w", err)
	}

	mime := "image/png"
	if m := fields["mimeType"].GetStringValue(); strings.HasPrefix(m, "image/") {
		mime = m
	}
	return storeRender(ctx, v.store, data, mime)
}

func (v *VertexImagen) dial(ctx context.Context) (predictor, error) {
	options := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", v.cfg.Location))}
	switch {
	case v.cfg.ServiceAccountJSON != "":
		options = append(options, option.WithCredentialsJSON([]byte(v.cfg.ServiceAccountJSON)))
	case v.cfg.ServiceAccount != "":
		options = append(options, option.WithCredentialsFile(v.cfg.ServiceAccount))
	case v.cfg.APIKey != "":
		options = append(options, option.WithAPIKey(v.cfg.APIKey))
	}
	return aiplatform.NewPredictionClient(ctx, options...)
}

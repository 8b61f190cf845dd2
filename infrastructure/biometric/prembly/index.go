package prembly

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"faceguard.io/infrastructure/biometric/types"
	"faceguard.io/infrastructure/logger"
	"faceguard.io/infrastructure/network"
)

// PremblyBiometricService adapts the Prembly IdentityPass API. Prembly exposes
// comparison and single image liveness only; detection quality metrics are
// approximated from its confidence payloads and indexed search is unsupported,
// so similarity search falls back to linear comparison upstream.
type PremblyBiometricService struct {
	Network *network.NetworkController
	APIKey  string
	AppID   string
}

const providerName = "prembly"

type premblyFaceMatchResponse struct {
	Status     bool    `json:"status"`
	Detail     string  `json:"detail"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
	Message    string  `json:"message"`
}

type premblyLivenessResponse struct {
	Status  bool    `json:"status"`
	Result  float64 `json:"result"`
	Quality float64 `json:"quality"`
	Message string  `json:"message"`
}

type premblyDetectResponse struct {
	Status     bool    `json:"status"`
	FaceCount  int     `json:"face_count"`
	Confidence float64 `json:"confidence"`
	Brightness float64 `json:"brightness"`
	Sharpness  float64 `json:"sharpness"`
	Message    string  `json:"message"`
}

func (piv *PremblyBiometricService) headers() *map[string]string {
	return &map[string]string{
		"x-api-key": piv.APIKey,
		"app-id":    piv.AppID,
	}
}

func (piv *PremblyBiometricService) post(ctx context.Context, operation string, path string, body any, out any) error {
	response, statusCode, err := piv.Network.Post(ctx, path, piv.headers(), body)
	if err != nil {
		logger.Error(fmt.Sprintf("error performing %s on Prembly", operation), logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return &types.ProviderError{Provider: providerName, Operation: operation, Err: err}
	}
	if statusCode == nil || *statusCode != 200 {
		return &types.ProviderError{Provider: providerName, Operation: operation, Err: fmt.Errorf("unexpected status code %v", statusCode)}
	}
	if err := json.Unmarshal(*response, out); err != nil {
		logger.Error(fmt.Sprintf("error parsing %s response from Prembly", operation), logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return &types.ProviderError{Provider: providerName, Operation: operation, Err: err}
	}
	return nil
}

func (piv *PremblyBiometricService) Detect(ctx context.Context, image []byte) (*types.DetectionResult, error) {
	var result premblyDetectResponse
	err := piv.post(ctx, "detect", "/identitypass/verification/biometrics/face/detection", map[string]any{
		"image": base64.StdEncoding.EncodeToString(image),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Status {
		return nil, &types.ProviderError{Provider: providerName, Operation: "detect", Err: fmt.Errorf("%s", result.Message)}
	}
	faces := make([]types.FaceInfo, 0, result.FaceCount)
	for i := 0; i < result.FaceCount; i++ {
		faces = append(faces, types.FaceInfo{
			FaceID:     fmt.Sprintf("prembly-face-%d", i),
			Confidence: result.Confidence / 100.0,
		})
	}
	return &types.DetectionResult{
		Faces: faces,
		ImageQuality: types.ImageQuality{
			Brightness:   result.Brightness / 100.0,
			Clarity:      result.Sharpness / 100.0,
			Completeness: 1,
		},
	}, nil
}

func (piv *PremblyBiometricService) Compare(ctx context.Context, imageA []byte, imageB []byte) (*types.ComparisonResult, error) {
	var result premblyFaceMatchResponse
	err := piv.post(ctx, "compare", "/identitypass/verification/biometrics/face/comparison", map[string]any{
		"image_one": base64.StdEncoding.EncodeToString(imageA),
		"image_two": base64.StdEncoding.EncodeToString(imageB),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Status {
		return nil, &types.ProviderError{Provider: providerName, Operation: "compare", Err: fmt.Errorf("%s", result.Message)}
	}
	// prembly reports percentages
	return &types.ComparisonResult{
		Similarity: result.Score / 100.0,
		Confidence: result.Confidence / 100.0,
	}, nil
}

// MatchTemplate compares against a stored prembly template, which is the raw
// reference image prembly was given at extraction time.
func (piv *PremblyBiometricService) MatchTemplate(ctx context.Context, image []byte, template []byte) (*types.ComparisonResult, error) {
	return piv.Compare(ctx, image, template)
}

// ExtractTemplate returns the source image bytes as the stored descriptor.
// Prembly has no feature vector export, so comparison always replays the
// reference image through its comparison endpoint.
func (piv *PremblyBiometricService) ExtractTemplate(ctx context.Context, image []byte) (*types.FeatureExtraction, error) {
	var result premblyDetectResponse
	err := piv.post(ctx, "extract_template", "/identitypass/verification/biometrics/face/detection", map[string]any{
		"image": base64.StdEncoding.EncodeToString(image),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Status {
		return nil, &types.ProviderError{Provider: providerName, Operation: "extract_template", Err: fmt.Errorf("%s", result.Message)}
	}
	return &types.FeatureExtraction{Vector: image, Quality: result.Confidence / 100.0}, nil
}

func (piv *PremblyBiometricService) Liveness(ctx context.Context, frames [][]byte) (*types.LivenessResult, error) {
	if len(frames) == 0 {
		return nil, &types.ProviderError{Provider: providerName, Operation: "liveness", Err: fmt.Errorf("no frames supplied")}
	}
	// prembly scores one image at a time; frames are averaged here
	var total float64
	details := map[types.LivenessSignal]float64{}
	for _, frame := range frames {
		var result premblyLivenessResponse
		err := piv.post(ctx, "liveness", "/identitypass/verification/biometrics/face/liveliness_check", map[string]any{
			"image": base64.StdEncoding.EncodeToString(frame),
		}, &result)
		if err != nil {
			return nil, err
		}
		if !result.Status {
			return nil, &types.ProviderError{Provider: providerName, Operation: "liveness", Err: fmt.Errorf("%s", result.Message)}
		}
		total += result.Result / 100.0
	}
	score := total / float64(len(frames))
	details[types.SignalTexture] = score
	return &types.LivenessResult{
		Confidence: score,
		Score:      score,
		Details:    details,
	}, nil
}

var _ types.RecognitionProvider = (*PremblyBiometricService)(nil)

package faceguard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"faceguard.io/infrastructure/biometric/types"
	"faceguard.io/infrastructure/logger"
	"faceguard.io/infrastructure/network"
)

// FaceGuardEngine talks to the in-house face engine over HTTP. It implements
// the full provider surface including indexed template search and stateful
// liveness sessions.
type FaceGuardEngine struct {
	Network *network.NetworkController
	APIKey  string
}

const providerName = "faceguard"

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Success bool                `json:"success"`
	Error   *string             `json:"error"`
	Faces   []faceInfoPayload   `json:"faces"`
	Quality imageQualityPayload `json:"image_quality"`
}

type faceInfoPayload struct {
	FaceID     string                `json:"face_id"`
	Box        []int                 `json:"box"`
	Confidence float64               `json:"confidence"`
	Landmarks  []landmarkPayload     `json:"landmarks"`
	Attributes *types.FaceAttributes `json:"attributes"`
}

type landmarkPayload struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type imageQualityPayload struct {
	Brightness   float64 `json:"brightness"`
	Clarity      float64 `json:"clarity"`
	Completeness float64 `json:"completeness"`
}

type compareRequest struct {
	Image1 string `json:"image1"`
	Image2 string `json:"image2"`
}

type matchTemplateRequest struct {
	Image    string `json:"image"`
	Template string `json:"template"`
}

type comparePayload struct {
	Success              bool    `json:"success"`
	Error                *string `json:"error"`
	Similarity           float64 `json:"similarity"`
	Confidence           float64 `json:"confidence"`
	FaceDistance         float64 `json:"face_distance"`
	FeatureMatches       float64 `json:"feature_matches"`
	GeometricConsistency float64 `json:"geometric_consistency"`
}

type extractResponse struct {
	Success  bool    `json:"success"`
	Error    *string `json:"error"`
	Template string  `json:"template"`
	Quality  float64 `json:"quality"`
}

type livenessRequest struct {
	Frames []string `json:"frames"`
}

type livenessPayload struct {
	Success    bool               `json:"success"`
	Error      *string            `json:"error"`
	Confidence float64            `json:"confidence"`
	Score      float64            `json:"liveness_score"`
	Signals    map[string]float64 `json:"signals"`
}

type sessionResponse struct {
	Success    bool    `json:"success"`
	Error      *string `json:"error"`
	SessionRef string  `json:"session_ref"`
}

type indexTemplateRequest struct {
	TemplateID string `json:"template_id"`
	UserID     string `json:"user_id"`
	Template   string `json:"template"`
}

type searchRequest struct {
	Image string `json:"image"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success bool                `json:"success"`
	Error   *string             `json:"error"`
	Matches []types.SearchMatch `json:"matches"`
}

func (fge *FaceGuardEngine) headers() *map[string]string {
	return &map[string]string{
		"x-api-key": fge.APIKey,
	}
}

func (fge *FaceGuardEngine) post(ctx context.Context, operation string, path string, body any, out any) error {
	response, statusCode, err := fge.Network.Post(ctx, path, fge.headers(), body)
	if err != nil {
		logger.Error(fmt.Sprintf("error performing %s on faceguard engine", operation), logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return &types.ProviderError{Provider: providerName, Operation: operation, Err: err}
	}
	if statusCode == nil || *statusCode != 200 {
		logger.Error(fmt.Sprintf("%s failed on faceguard engine with status code", operation), logger.LoggerOptions{
			Key:  "status_code",
			Data: statusCode,
		})
		return &types.ProviderError{Provider: providerName, Operation: operation, Err: fmt.Errorf("unexpected status code %v", statusCode)}
	}
	if err := json.Unmarshal(*response, out); err != nil {
		logger.Error(fmt.Sprintf("error unmarshaling %s response from faceguard engine", operation), logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return &types.ProviderError{Provider: providerName, Operation: operation, Err: err}
	}
	return nil
}

func (fge *FaceGuardEngine) Detect(ctx context.Context, image []byte) (*types.DetectionResult, error) {
	var result detectResponse
	err := fge.post(ctx, "detect", "/detect-faces", detectRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, vendorError("detect", result.Error)
	}

	faces := make([]types.FaceInfo, 0, len(result.Faces))
	for _, face := range result.Faces {
		info := types.FaceInfo{
			FaceID:     face.FaceID,
			Confidence: face.Confidence,
			Attributes: face.Attributes,
		}
		if len(face.Box) == 4 {
			info.BoundingBox = types.BoundingBox{X: face.Box[0], Y: face.Box[1], Width: face.Box[2], Height: face.Box[3]}
		}
		for _, lm := range face.Landmarks {
			info.Landmarks = append(info.Landmarks, types.Landmark{Name: lm.Name, X: lm.X, Y: lm.Y})
		}
		faces = append(faces, info)
	}
	return &types.DetectionResult{
		Faces: faces,
		ImageQuality: types.ImageQuality{
			Brightness:   result.Quality.Brightness,
			Clarity:      result.Quality.Clarity,
			Completeness: result.Quality.Completeness,
		},
	}, nil
}

func (fge *FaceGuardEngine) Compare(ctx context.Context, imageA []byte, imageB []byte) (*types.ComparisonResult, error) {
	var result comparePayload
	err := fge.post(ctx, "compare", "/compare-faces", compareRequest{
		Image1: base64.StdEncoding.EncodeToString(imageA),
		Image2: base64.StdEncoding.EncodeToString(imageB),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, vendorError("compare", result.Error)
	}
	return comparisonFromPayload(&result), nil
}

func (fge *FaceGuardEngine) MatchTemplate(ctx context.Context, image []byte, template []byte) (*types.ComparisonResult, error) {
	var result comparePayload
	err := fge.post(ctx, "match_template", "/match-template", matchTemplateRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Template: base64.StdEncoding.EncodeToString(template),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, vendorError("match_template", result.Error)
	}
	return comparisonFromPayload(&result), nil
}

func (fge *FaceGuardEngine) ExtractTemplate(ctx context.Context, image []byte) (*types.FeatureExtraction, error) {
	var result extractResponse
	err := fge.post(ctx, "extract_template", "/extract-template", detectRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, vendorError("extract_template", result.Error)
	}
	vector, err := base64.StdEncoding.DecodeString(result.Template)
	if err != nil {
		return nil, &types.ProviderError{Provider: providerName, Operation: "extract_template", Err: err}
	}
	return &types.FeatureExtraction{Vector: vector, Quality: result.Quality}, nil
}

func (fge *FaceGuardEngine) Liveness(ctx context.Context, frames [][]byte) (*types.LivenessResult, error) {
	encoded := make([]string, 0, len(frames))
	for _, frame := range frames {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(frame))
	}
	var result livenessPayload
	err := fge.post(ctx, "liveness", "/liveness-frames", livenessRequest{Frames: encoded}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, vendorError("liveness", result.Error)
	}
	return livenessFromPayload(&result), nil
}

func (fge *FaceGuardEngine) OpenLivenessSession(ctx context.Context) (string, error) {
	var result sessionResponse
	err := fge.post(ctx, "open_liveness_session", "/liveness-session", nil, &result)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", vendorError("open_liveness_session", result.Error)
	}
	return result.SessionRef, nil
}

func (fge *FaceGuardEngine) SubmitLivenessFrame(ctx context.Context, sessionRef string, frameNumber int, frame []byte) (*types.LivenessResult, error) {
	var result livenessPayload
	err := fge.post(ctx, "submit_liveness_frame", fmt.Sprintf("/liveness-session/%s/frames", sessionRef), map[string]any{
		"frame_number": frameNumber,
		"frame":        base64.StdEncoding.EncodeToString(frame),
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, vendorError("submit_liveness_frame", result.Error)
	}
	return livenessFromPayload(&result), nil
}

func (fge *FaceGuardEngine) CloseLivenessSession(ctx context.Context, sessionRef string) error {
	_, statusCode, err := fge.Network.Delete(ctx, fmt.Sprintf("/liveness-session/%s", sessionRef), fge.headers())
	if err != nil {
		return &types.ProviderError{Provider: providerName, Operation: "close_liveness_session", Err: err}
	}
	if statusCode == nil || *statusCode != 200 {
		return &types.ProviderError{Provider: providerName, Operation: "close_liveness_session", Err: fmt.Errorf("unexpected status code %v", statusCode)}
	}
	return nil
}

func (fge *FaceGuardEngine) IndexTemplate(ctx context.Context, templateID string, userID string, template []byte) error {
	var result sessionResponse
	err := fge.post(ctx, "index_template", "/templates", indexTemplateRequest{
		TemplateID: templateID,
		UserID:     userID,
		Template:   base64.StdEncoding.EncodeToString(template),
	}, &result)
	if err != nil {
		return err
	}
	if !result.Success {
		return vendorError("index_template", result.Error)
	}
	return nil
}

func (fge *FaceGuardEngine) RemoveTemplate(ctx context.Context, templateID string) error {
	_, statusCode, err := fge.Network.Delete(ctx, fmt.Sprintf("/templates/%s", templateID), fge.headers())
	if err != nil {
		return &types.ProviderError{Provider: providerName, Operation: "remove_template", Err: err}
	}
	if statusCode == nil || *statusCode != 200 {
		return &types.ProviderError{Provider: providerName, Operation: "remove_template", Err: fmt.Errorf("unexpected status code %v", statusCode)}
	}
	return nil
}

func (fge *FaceGuardEngine) SearchTemplates(ctx context.Context, image []byte, limit int) ([]types.SearchMatch, error) {
	var result searchResponse
	err := fge.post(ctx, "search_templates", "/search-templates", searchRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		Limit: limit,
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, vendorError("search_templates", result.Error)
	}
	return result.Matches, nil
}

func (fge *FaceGuardEngine) Healthy(ctx context.Context) error {
	_, statusCode, err := fge.Network.Get(ctx, "/health", fge.headers())
	if err != nil {
		return &types.ProviderError{Provider: providerName, Operation: "health", Err: err}
	}
	if statusCode == nil || *statusCode != 200 {
		return &types.ProviderError{Provider: providerName, Operation: "health", Err: fmt.Errorf("unexpected status code %v", statusCode)}
	}
	return nil
}

func comparisonFromPayload(payload *comparePayload) *types.ComparisonResult {
	return &types.ComparisonResult{
		Similarity: payload.Similarity,
		Confidence: payload.Confidence,
		Details: types.ComparisonDetails{
			FaceDistance:         payload.FaceDistance,
			FeatureMatches:       payload.FeatureMatches,
			GeometricConsistency: payload.GeometricConsistency,
		},
	}
}

func livenessFromPayload(payload *livenessPayload) *types.LivenessResult {
	details := map[types.LivenessSignal]float64{}
	for name, score := range payload.Signals {
		details[types.LivenessSignal(name)] = score
	}
	return &types.LivenessResult{
		Confidence: payload.Confidence,
		Score:      payload.Score,
		Details:    details,
	}
}

func vendorError(operation string, message *string) error {
	errMessage := "unknown vendor failure"
	if message != nil {
		errMessage = *message
	}
	return &types.ProviderError{Provider: providerName, Operation: operation, Err: fmt.Errorf("%s", errMessage)}
}

var (
	_ types.RecognitionProvider     = (*FaceGuardEngine)(nil)
	_ types.TemplateSearcher        = (*FaceGuardEngine)(nil)
	_ types.LivenessSessionProvider = (*FaceGuardEngine)(nil)
	_ types.HealthChecker           = (*FaceGuardEngine)(nil)
)

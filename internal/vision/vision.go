// Package vision annotates product images with the Google Cloud Vision API and
// turns the annotations into a ClassificationResult.
package vision

import (
	"context"
	"errors"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// ErrAnnotate is returned when the Vision API reports a failure for an image.
var ErrAnnotate = errors.New("vision annotation failed")

// DefaultMaxLabels caps label detection results.
const DefaultMaxLabels = 15

// RGB is a dominant colour with channels in 0..255.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Annotations is the subset of a Vision response used for classification.
// Labels, object names and web entity descriptions are kept in reported order.
type Annotations struct {
	Labels        []string `json:"labels"`
	Objects       []string `json:"objects"`
	WebEntities   []string `json:"web_entities"`
	DominantColor *RGB     `json:"dominant_color,omitempty"`
}

// Analyzer annotates raw image bytes.
type Analyzer interface {
	Annotate(ctx context.Context, image []byte) (*Annotations, error)
}

// GoogleAnalyzer implements Analyzer with the Vision ImageAnnotator client.
type GoogleAnalyzer struct {
	client    *vision.ImageAnnotatorClient
	maxLabels int
}

// NewGoogleAnalyzer dials the Vision API. An empty credentialsPath uses
// application default credentials.
func NewGoogleAnalyzer(ctx context.Context, credentialsPath string, maxLabels int) (*GoogleAnalyzer, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	if maxLabels <= 0 {
		maxLabels = DefaultMaxLabels
	}
	return &GoogleAnalyzer{client: client, maxLabels: maxLabels}, nil
}

// Close releases the client connection.
func (a *GoogleAnalyzer) Close() error {
	return a.client.Close()
}

// Annotate requests label, image-property, object and web detection in a
// single call.
func (a *GoogleAnalyzer) Annotate(ctx context.Context, image []byte) (*Annotations, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: int32(a.maxLabels)},
				{Type: visionpb.Feature_IMAGE_PROPERTIES},
				{Type: visionpb.Feature_OBJECT_LOCALIZATION},
				{Type: visionpb.Feature_WEB_DETECTION},
			},
		}},
	}

	resp, err := a.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotate, err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrAnnotate)
	}

	r := resp.GetResponses()[0]
	if st := r.GetError(); st != nil && st.GetMessage() != "" {
		return nil, fmt.Errorf("%w: %s", ErrAnnotate, st.GetMessage())
	}
	return fromResponse(r), nil
}

func fromResponse(r *visionpb.AnnotateImageResponse) *Annotations {
	a := &Annotations{}
	for _, l := range r.GetLabelAnnotations() {
		a.Labels = append(a.Labels, l.GetDescription())
	}
	for _, o := range r.GetLocalizedObjectAnnotations() {
		a.Objects = append(a.Objects, o.GetName())
	}
	for _, e := range r.GetWebDetection().GetWebEntities() {
		if e.GetDescription() != "" {
			a.WebEntities = append(a.WebEntities, e.GetDescription())
		}
	}
	if colors := r.GetImagePropertiesAnnotation().GetDominantColors().GetColors(); len(colors) > 0 {
		c := colors[0].GetColor()
		a.DominantColor = &RGB{
			R: float64(c.GetRed()),
			G: float64(c.GetGreen()),
			B: float64(c.GetBlue()),
		}
	}
	return a
}

// Compile-time check that GoogleAnalyzer implements Analyzer.
var _ Analyzer = (*GoogleAnalyzer)(nil)

package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nfnt/resize"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9]`)

// Provisioner generates a product photo through an OpenAI-compatible images
// API, downscales it, and saves it under the local products directory.
type Provisioner struct {
	httpClient *http.Client
	apiURL     string
	dir        string
}

// NewProvisioner creates a new Provisioner. An empty apiURL falls back to a
// local image server; dir is the on-disk directory served at /products.
func NewProvisioner(apiURL, dir string) *Provisioner {
	if apiURL == "" {
		apiURL = "http://localhost:1234/v1/images/generations"
	}
	if dir == "" {
		dir = filepath.Join("images", "products")
	}
	return &Provisioner{
		httpClient: &http.Client{},
		apiURL:     apiURL,
		dir:        dir,
	}
}

// Request represents the image generation request body.
type Request struct {
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

// Response represents the image generation response.
type Response struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// ProvisionImage generates a display image for a normalized product name and
// returns the path it is served at. Callers treat failure as "no image", not
// as a fatal error.
func (p *Provisioner) ProvisionImage(ctx context.Context, name string) (string, error) {
	reqBody := Request{
		Prompt:         fmt.Sprintf("A clear grocery product photo of %s on a white background, realistic lighting, center focus", name),
		Size:           "1024x1024",
		Quality:        "standard",
		ResponseFormat: "b64_json",
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var imgResp Response
	if err := json.NewDecoder(resp.Body).Decode(&imgResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(imgResp.Data) == 0 {
		return "", fmt.Errorf("no image generated for %q", name)
	}

	imageData, err := p.fetchImageBytes(ctx, imgResp.Data[0].URL, imgResp.Data[0].B64JSON)
	if err != nil {
		return "", err
	}

	return p.saveProductImage(imageData, name)
}

func (p *Provisioner) fetchImageBytes(ctx context.Context, url, b64 string) ([]byte, error) {
	if b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}
		return data, nil
	}
	if url == "" {
		return nil, fmt.Errorf("image response contained neither url nor payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetch request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// saveProductImage downscales the raw image to 512x512 and writes it as a
// compressed JPEG named after the product.
func (p *Provisioner) saveProductImage(imageData []byte, name string) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	img = resize.Resize(512, 512, img, resize.Lanczos3)

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create products directory: %w", err)
	}

	safeFileName := unsafeChars.ReplaceAllString(strings.ToLower(name), "_")
	imagePath := filepath.Join(p.dir, safeFileName+".jpg")
	out, err := os.Create(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 70}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return "/products/" + safeFileName + ".jpg", nil
}

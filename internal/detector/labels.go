package detector

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// cocoLabels are the 80 COCO classes in the order YOLO models emit them
var cocoLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}

// COCOLabels returns a copy of the built-in COCO class list
func COCOLabels() []string {
	return slices.Clone(cocoLabels)
}

// LoadLabels reads class names from path. Ultralytics dataset YAML files
// are read from their names key, anything else is one label per line.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}

	var labels []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		labels, err = parseYAMLLabels(data)
	default:
		labels, err = parseTextLabels(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels file %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

func parseTextLabels(data []byte) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	return labels, scanner.Err()
}

// parseYAMLLabels accepts names as a list or as an index keyed map
func parseYAMLLabels(data []byte) ([]string, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, err
		}
		return names, nil
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := doc.Names.Decode(&byIndex); err != nil {
			return nil, err
		}
		names := make([]string, len(byIndex))
		for i, name := range byIndex {
			if i < 0 || i >= len(names) {
				return nil, fmt.Errorf("class index %d out of range", i)
			}
			names[i] = name
		}
		return names, nil
	case 0:
		return nil, fmt.Errorf("missing names key")
	default:
		return nil, fmt.Errorf("names must be a list or a map")
	}
}

// labelIndex returns the position of name in labels, ignoring case
func labelIndex(labels []string, name string) int {
	return slices.IndexFunc(labels, func(l string) bool {
		return strings.EqualFold(strings.TrimSpace(l), strings.TrimSpace(name))
	})
}

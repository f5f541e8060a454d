package model

import "github.com/ppiankov/charta/internal/label"

// LabelScore holds the confusion counts and derived measures of one label
type LabelScore struct {
	Label     label.Label `json:"label"`
	TP        int         `json:"tp"`
	FP        int         `json:"fp"`
	TN        int         `json:"tn"`
	FN        int         `json:"fn"`
	Precision float64     `json:"precision"`
	Recall    float64     `json:"recall"`
	Accuracy  float64     `json:"accuracy"`
	F1        float64     `json:"f1"`
	Used      bool        `json:"used"` // False when the label never occurs in the truth
}

// Average is a macro or micro average over used labels
type Average struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Accuracy  float64 `json:"accuracy"`
	F1        float64 `json:"f1"`
}

// EvaluationResult is the cross-validated outcome of one configuration
type EvaluationResult struct {
	Settings ClassificationConfig `json:"settings"`
	Matrix   [][]int              `json:"matrix"` // [true][predicted]
	Labels   []LabelScore         `json:"labels"`
	Macro    Average              `json:"macro"`
	Micro    Average              `json:"micro"`
	Unused   []label.Label        `json:"unused,omitempty"`
}

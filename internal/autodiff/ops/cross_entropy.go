package ops

import (
	"math"

	"github.com/seam-ml/seam/internal/tensor"
)

// CrossEntropyOp is the fused softmax + negative-log-likelihood loss for
// multi-class classification.
//
// Forward:
//
//	loss = mean_b(-log_softmax(logits[b])[targets[b]])
//
// log_softmax uses the log-sum-exp trick for numerical stability.
//
// Backward:
//
//	dL/dlogits[b,i] = (softmax(logits[b])[i] - onehot(targets[b])[i]) / batch
//
// The fusion is what makes the gradient this simple; computing softmax and
// NLL as separate graph nodes would be both slower and less stable.
//
// Logits are [batch, classes], targets are [batch] int32 class indices.
// Targets are constants: no gradient flows to them.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor // scalar mean loss
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		logits:  logits,
		targets: targets,
		output:  output,
	}
}

// Backward computes the gradient with respect to the logits.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batch, classes := shape[0], shape[1]
	grad := zerosLike(op.logits)

	switch op.logits.DType() {
	case tensor.Float32:
		crossEntropyGradKernel(
			op.logits.AsFloat32(), op.targets.AsInt32(),
			outputGrad.AsFloat32()[0], grad.AsFloat32(),
			batch, classes)
	case tensor.Float64:
		crossEntropyGradKernel(
			op.logits.AsFloat64(), op.targets.AsInt32(),
			outputGrad.AsFloat64()[0], grad.AsFloat64(),
			batch, classes)
	default:
		panic("CrossEntropyOp: only float32 and float64 logits are supported")
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the differentiable input tensors [logits].
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss tensor.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// CrossEntropyForward computes the mean cross-entropy loss over a batch.
// It panics with ErrShapeMismatch on malformed inputs, matching the
// backend kernel convention.
func CrossEntropyForward(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(tensor.ShapeMismatchf("cross-entropy logits must be 2D [batch, classes], got %v", shape))
	}
	if len(targets.Shape()) != 1 || targets.Shape()[0] != shape[0] {
		panic(tensor.ShapeMismatchf("cross-entropy targets must be [%d], got %v", shape[0], targets.Shape()))
	}

	batch, classes := shape[0], shape[1]
	output, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), logits.Device())
	if err != nil {
		panic(err)
	}

	switch logits.DType() {
	case tensor.Float32:
		output.AsFloat32()[0] = crossEntropyKernel(logits.AsFloat32(), targets.AsInt32(), batch, classes)
	case tensor.Float64:
		output.AsFloat64()[0] = crossEntropyKernel(logits.AsFloat64(), targets.AsInt32(), batch, classes)
	default:
		panic("cross-entropy: only float32 and float64 logits are supported")
	}

	return output
}

func crossEntropyKernel[T float32 | float64](logits []T, targets []int32, batch, classes int) T {
	var total T
	for b := 0; b < batch; b++ {
		row := logits[b*classes : (b+1)*classes]
		target := int(targets[b])
		if target < 0 || target >= classes {
			panic(tensor.ShapeMismatchf("cross-entropy target %d out of range [0, %d)", target, classes))
		}
		total += logSumExp(row) - row[target]
	}
	return total / T(batch)
}

func crossEntropyGradKernel[T float32 | float64](logits []T, targets []int32, scale T, grad []T, batch, classes int) {
	for b := 0; b < batch; b++ {
		row := logits[b*classes : (b+1)*classes]
		probs := softmaxRow(row)
		target := int(targets[b])
		for i := 0; i < classes; i++ {
			g := probs[i]
			if i == target {
				g -= 1
			}
			grad[b*classes+i] = scale * g / T(batch)
		}
	}
}

// softmaxRow computes a numerically stable softmax of a single row.
func softmaxRow[T float32 | float64](row []T) []T {
	probs := make([]T, len(row))
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum T
	for i, v := range row {
		probs[i] = T(math.Exp(float64(v - maxVal)))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// logSumExp computes log(sum(exp(row))) with the max-shift trick.
func logSumExp[T float32 | float64](row []T) T {
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v - maxVal))
	}
	return maxVal + T(math.Log(sum))
}

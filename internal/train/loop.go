package train

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/seam-ml/seam/internal/autodiff"
	"github.com/seam-ml/seam/internal/data"
	"github.com/seam-ml/seam/internal/nn"
	"github.com/seam-ml/seam/internal/optim"
	"github.com/seam-ml/seam/internal/tensor"
)

// Loop drives training and evaluation of a classifier.
//
// Each epoch runs a train phase over shuffled batches of the training
// dataset, then an evaluation phase over the evaluation dataset:
//
//   - Train phase, per batch: clear the tape, forward with recording on,
//     cross-entropy loss, backward seeded at the loss, optimizer step,
//     zero gradients.
//   - Eval phase: forward inside NoGrad, accumulate mean loss (per batch)
//     and top-1 accuracy (per example).
//
// A batch whose feature width disagrees with the model surfaces as an
// ErrShapeMismatch-wrapped error and aborts the current phase; there is
// no retry and no skipping.
type Loop[B autodiff.BackwardCapable] struct {
	config    Config
	backend   B
	model     nn.Module[B]
	loss      *nn.CrossEntropyLoss[B]
	optimizer optim.Optimizer
	rng       *rand.Rand

	// ShowProgress draws a per-epoch progress bar on stderr.
	ShowProgress bool
}

// EpochResult reports one epoch's outcome.
type EpochResult struct {
	Epoch     int
	TrainLoss float64
	EvalLoss  float64
	Accuracy  float64
}

// NewLoop creates a training loop. The config is validated once, here;
// an invalid config is the only error this constructor returns.
func NewLoop[B autodiff.BackwardCapable](
	config Config,
	backend B,
	model nn.Module[B],
	optimizer optim.Optimizer,
) (*Loop[B], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Loop[B]{
		config:    config,
		backend:   backend,
		model:     model,
		loss:      nn.NewCrossEntropyLoss[B](),
		optimizer: optimizer,
		rng:       rand.New(rand.NewSource(42)),
	}, nil
}

// Run trains for the configured number of epochs, evaluating after each.
// Returns the per-epoch results, or the first error encountered.
func (l *Loop[B]) Run(trainDS, evalDS data.Dataset) ([]EpochResult, error) {
	results := make([]EpochResult, 0, l.config.Epochs)

	for epoch := 1; epoch <= l.config.Epochs; epoch++ {
		trainLoss, err := l.trainEpoch(epoch, trainDS)
		if err != nil {
			return results, errors.Wrapf(err, "train phase of epoch %d", epoch)
		}

		evalLoss, accuracy, err := l.Evaluate(evalDS)
		if err != nil {
			return results, errors.Wrapf(err, "eval phase of epoch %d", epoch)
		}

		klog.Infof("epoch %d/%d: train loss %.4f, eval loss %.4f, accuracy %.2f%%",
			epoch, l.config.Epochs, trainLoss, evalLoss, accuracy*100)
		results = append(results, EpochResult{
			Epoch:     epoch,
			TrainLoss: trainLoss,
			EvalLoss:  evalLoss,
			Accuracy:  accuracy,
		})
	}
	return results, nil
}

// trainEpoch runs one pass of gradient descent over shuffled batches and
// returns the mean per-batch loss.
func (l *Loop[B]) trainEpoch(epoch int, ds data.Dataset) (float64, error) {
	tape := l.backend.GetTape()
	batches := data.Batches(ds, l.config.BatchSize, data.Perm(ds, l.rng))

	var bar *progressbar.ProgressBar
	if l.ShowProgress {
		bar = progressbar.Default(int64(len(batches)), "train")
	}

	var lossMetric MeanMetric
	var running MeanMetric

	for i, batch := range batches {
		loss, err := l.trainStep(batch)
		if err != nil {
			return 0, err
		}
		lossMetric.Update(loss)
		running.Update(loss)

		if bar != nil {
			_ = bar.Add(1)
		}
		if (i+1)%l.config.LogEvery == 0 {
			klog.V(1).Infof("epoch %d batch %d/%d: running loss %.4f",
				epoch, i+1, len(batches), running.Mean())
			running.Reset()
		}
	}

	if bar != nil {
		_ = bar.Close()
	}
	tape.Clear()
	return lossMetric.Mean(), nil
}

// trainStep runs forward, backward and optimizer update for one batch.
// Kernel panics carrying wrapped sentinel errors are recovered and
// returned; they abort the phase in the caller.
func (l *Loop[B]) trainStep(batch data.Batch) (loss float64, err error) {
	defer recoverToError(&err)

	tape := l.backend.GetTape()
	tape.Clear()
	tape.StartRecording()
	defer tape.StopRecording()

	features, labels, err := l.batchTensors(batch)
	if err != nil {
		return 0, err
	}

	logits := l.model.Forward(features)
	lossTensor := l.loss.Forward(logits, labels)

	if err := autodiff.Backward(lossTensor, l.backend); err != nil {
		return 0, err
	}
	if err := l.optimizer.Step(); err != nil {
		return 0, err
	}
	l.optimizer.ZeroGrad()

	return float64(lossTensor.Item()), nil
}

// Evaluate runs the model over ds without gradient tracking and returns
// the mean per-batch loss and the per-example top-1 accuracy.
func (l *Loop[B]) Evaluate(ds data.Dataset) (meanLoss, accuracy float64, err error) {
	defer recoverToError(&err)

	var lossMetric MeanMetric
	var accMetric AccuracyMetric

	l.backend.GetTape().NoGrad(func() {
		for _, batch := range data.Batches(ds, l.config.BatchSize, nil) {
			features, labels, batchErr := l.batchTensors(batch)
			if batchErr != nil {
				err = batchErr
				return
			}

			logits := l.model.Forward(features)
			lossTensor := l.loss.Forward(logits, labels)
			lossMetric.Update(float64(lossTensor.Item()))

			predictions := l.backend.Argmax(logits.Raw(), 1).AsInt32()
			correct := 0
			for i, p := range predictions {
				if p == batch.Labels[i] {
					correct++
				}
			}
			accMetric.Update(correct, batch.Size)
		}
	})
	if err != nil {
		return 0, 0, err
	}

	return lossMetric.Mean(), accMetric.Accuracy(), nil
}

func (l *Loop[B]) batchTensors(batch data.Batch) (*tensor.Tensor[float32, B], *tensor.Tensor[int32, B], error) {
	featureRaw, err := batch.FeatureTensor(l.backend)
	if err != nil {
		return nil, nil, err
	}
	labelRaw, err := batch.LabelTensor(l.backend)
	if err != nil {
		return nil, nil, err
	}
	return tensor.New[float32, B](featureRaw, l.backend),
		tensor.New[int32, B](labelRaw, l.backend), nil
}

// recoverToError converts a panic carrying an error (the backend kernel
// convention for shape mismatches) into a returned error.
func recoverToError(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = e
		} else {
			*err = errors.Errorf("%v", r)
		}
	}
}

package train_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seam-ml/seam/internal/autodiff"
	"github.com/seam-ml/seam/internal/backend/cpu"
	"github.com/seam-ml/seam/internal/data"
	"github.com/seam-ml/seam/internal/nn"
	"github.com/seam-ml/seam/internal/optim"
	"github.com/seam-ml/seam/internal/tensor"
	"github.com/seam-ml/seam/internal/train"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func TestConfigValidate(t *testing.T) {
	valid := train.DefaultConfig()
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*train.Config)
	}{
		{"zero learning rate", func(c *train.Config) { c.LearningRate = 0 }},
		{"negative learning rate", func(c *train.Config) { c.LearningRate = -0.1 }},
		{"zero batch size", func(c *train.Config) { c.BatchSize = 0 }},
		{"negative batch size", func(c *train.Config) { c.BatchSize = -1 }},
		{"zero epochs", func(c *train.Config) { c.Epochs = 0 }},
		{"zero log interval", func(c *train.Config) { c.LogEvery = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := train.DefaultConfig()
			tc.mutate(&config)
			err := config.Validate()
			assert.ErrorIs(t, err, train.ErrConfiguration)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("learning_rate: 0.05\nepochs: 3\n"), 0o644))

	config, err := train.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.05, config.LearningRate)
	assert.Equal(t, 3, config.Epochs)
	// Absent fields keep their defaults.
	assert.Equal(t, 64, config.BatchSize)
	assert.Equal(t, 100, config.LogEvery)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := train.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, train.ErrConfiguration)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("epochs: [\n"), 0o644))
	_, err = train.LoadConfig(bad)
	assert.ErrorIs(t, err, train.ErrConfiguration)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("epochs: -2\n"), 0o644))
	_, err = train.LoadConfig(invalid)
	assert.ErrorIs(t, err, train.ErrConfiguration)
}

func TestMeanMetric(t *testing.T) {
	var m train.MeanMetric
	assert.Zero(t, m.Mean())

	m.Update(2)
	m.Update(4)
	assert.Equal(t, 3.0, m.Mean())
	assert.Equal(t, 2, m.Count())

	m.Reset()
	assert.Zero(t, m.Mean())
	assert.Zero(t, m.Count())
}

func TestAccuracyMetric(t *testing.T) {
	var m train.AccuracyMetric
	assert.Zero(t, m.Accuracy())

	m.Update(3, 4)
	m.Update(1, 4)
	assert.Equal(t, 0.5, m.Accuracy())

	m.Reset()
	assert.Zero(t, m.Accuracy())
}

func newTestLoop(t *testing.T, config train.Config, inFeatures, classes int) (*train.Loop[testBackend], nn.Module[testBackend]) {
	t.Helper()
	backend := autodiff.New(cpu.New())
	model := nn.NewSequential[testBackend](
		nn.NewLinear(inFeatures, 16, backend),
		nn.NewReLU[testBackend](),
		nn.NewLinear(16, classes, backend),
	)
	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: float32(config.LearningRate), Momentum: 0.9})

	loop, err := train.NewLoop(config, backend, model, optimizer)
	require.NoError(t, err)
	return loop, model
}

func TestNewLoopInvalidConfig(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := nn.NewLinear(4, 2, backend)
	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{})

	_, err := train.NewLoop(train.Config{}, backend, model, optimizer)
	assert.ErrorIs(t, err, train.ErrConfiguration)
}

func TestLoopRun(t *testing.T) {
	config := train.Config{
		LearningRate: 0.1,
		BatchSize:    32,
		Epochs:       5,
		LogEvery:     100,
	}
	loop, _ := newTestLoop(t, config, 8, 4)

	trainDS := data.Synthetic(512, 8, 4, 1)
	evalDS := data.Synthetic(128, 8, 4, 1)

	results, err := loop.Run(trainDS, evalDS)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, r := range results {
		assert.Equal(t, i+1, r.Epoch)
		assert.GreaterOrEqual(t, r.Accuracy, 0.0)
		assert.LessOrEqual(t, r.Accuracy, 1.0)
	}

	// The synthetic classes are linearly separable, so five epochs must
	// move both loss and accuracy the right way. Allow one noisy
	// epoch-to-epoch transition.
	first, last := results[0], results[len(results)-1]
	assert.Less(t, last.TrainLoss, first.TrainLoss)
	assert.Greater(t, last.Accuracy, 0.5)

	lossDrops, accGains := 0, 0
	for i := 1; i < len(results); i++ {
		if results[i].EvalLoss <= results[i-1].EvalLoss {
			lossDrops++
		}
		if results[i].Accuracy >= results[i-1].Accuracy {
			accGains++
		}
	}
	assert.GreaterOrEqual(t, lossDrops, len(results)-2)
	assert.GreaterOrEqual(t, accGains, len(results)-2)
}

func TestLoopBatchLargerThanDataset(t *testing.T) {
	config := train.Config{
		LearningRate: 0.1,
		BatchSize:    1000,
		Epochs:       1,
		LogEvery:     10,
	}
	loop, _ := newTestLoop(t, config, 4, 2)

	ds := data.Synthetic(20, 4, 2, 3)
	results, err := loop.Run(ds, ds)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestLoopFeatureWidthMismatch(t *testing.T) {
	config := train.Config{
		LearningRate: 0.1,
		BatchSize:    16,
		Epochs:       1,
		LogEvery:     10,
	}
	// Model expects 8 features, dataset provides 5.
	loop, _ := newTestLoop(t, config, 8, 2)
	ds := data.Synthetic(32, 5, 2, 1)

	_, err := loop.Run(ds, ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestEvaluateDoesNotTouchParameters(t *testing.T) {
	config := train.Config{
		LearningRate: 0.1,
		BatchSize:    16,
		Epochs:       1,
		LogEvery:     10,
	}
	loop, model := newTestLoop(t, config, 4, 2)
	ds := data.Synthetic(64, 4, 2, 1)

	var before [][]float32
	for _, p := range model.Parameters() {
		before = append(before, append([]float32(nil), p.Tensor().Data()...))
	}

	_, _, err := loop.Evaluate(ds)
	require.NoError(t, err)

	for i, p := range model.Parameters() {
		assert.Equal(t, before[i], p.Tensor().Data())
		assert.Nil(t, p.Grad(), "evaluation must not produce gradients")
	}
}

package gan

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GAN Simple implementation of GAN.
//
// generatorPart - reference to Generator
// discriminatorPart - reference to Discriminator
// generatorSolver, discriminatorSolver - separate solvers, each one touches only parameters of its own network
// masks - source of dropout masks for training programs
//
// Expression graphs in gorgonia have fixed shapes, so every program (sampling, discriminator update, generator update,
// scoring) is built lazily for each batch size it is asked for and cached. All programs share parameter tensors of
// networks, so a solver step made through one program is observed by every other program.
//
// GAN is not safe for concurrent use.
//
type GAN struct {
	generatorPart     *Generator
	discriminatorPart *Discriminator

	generatorSolver     gorgonia.Solver
	discriminatorSolver gorgonia.Solver

	latent *LatentSampler
	masks  *rand.Rand
	device Device

	samplers            map[int]*samplerProgram
	discriminatorTrains map[int]*discriminatorTrainProgram
	generatorTrains     map[int]*generatorTrainProgram
	scorers             map[int]*scorerProgram
}

// StepShapes Shapes of tensors which took part in single update
//
// Noise - latent batch fed to generator
// Labels - targets of loss
// Input - discriminator input (concatenation of real and fake samples for discriminator update)
//
type StepShapes struct {
	Noise  tensor.Shape
	Labels tensor.Shape
	Input  tensor.Shape
}

// GANOption Functional option for GAN
type GANOption func(*GAN)

// WithMaskSource Sets source of dropout masks. Default one is seeded with 1
func WithMaskSource(rng *rand.Rand) GANOption {
	return func(net *GAN) {
		if rng != nil {
			net.masks = rng
		}
	}
}

// NewGAN Creates GAN from two networks, their solvers and latent sampler
func NewGAN(generator *Generator, discriminator *Discriminator, generatorSolver, discriminatorSolver gorgonia.Solver, latent *LatentSampler, device Device, opts ...GANOption) (*GAN, error) {
	if generator == nil || discriminator == nil {
		return nil, fmt.Errorf("Both Generator and Discriminator must be provided")
	}
	if generatorSolver == nil || discriminatorSolver == nil {
		return nil, fmt.Errorf("Both solvers must be provided")
	}
	if latent == nil {
		return nil, fmt.Errorf("Latent sampler must be provided")
	}
	if latent.Dim() != generator.LatentDim() {
		return nil, fmt.Errorf("Latent sampler produces vectors of size %d, but Generator expects %d", latent.Dim(), generator.LatentDim())
	}
	if !sameShape(generator.SampleShape(), discriminator.SampleShape()) {
		return nil, shapeMismatch("generator/discriminator sample shape", discriminator.SampleShape(), generator.SampleShape())
	}
	net := &GAN{
		generatorPart:       generator,
		discriminatorPart:   discriminator,
		generatorSolver:     generatorSolver,
		discriminatorSolver: discriminatorSolver,
		latent:              latent,
		masks:               rand.New(rand.NewSource(1)),
		device:              device,
		samplers:            make(map[int]*samplerProgram),
		discriminatorTrains: make(map[int]*discriminatorTrainProgram),
		generatorTrains:     make(map[int]*generatorTrainProgram),
		scorers:             make(map[int]*scorerProgram),
	}
	for _, opt := range opts {
		opt(net)
	}
	return net, nil
}

// Generator Returns reference to generator part
func (net *GAN) Generator() *Generator {
	return net.generatorPart
}

// Discriminator Returns reference to discriminator part
func (net *GAN) Discriminator() *Discriminator {
	return net.discriminatorPart
}

// SampleShape Returns shape of single sample
func (net *GAN) SampleShape() tensor.Shape {
	return net.generatorPart.SampleShape()
}

// Generate Runs generator on provided latent batch of shape (B, latentDim). No gradients are involved
func (net *GAN) Generate(noise *tensor.Dense) (*tensor.Dense, error) {
	if noise == nil || noise.Dims() != 2 {
		return nil, shapeMismatch("generator input", tensor.Shape{0, net.generatorPart.LatentDim()}, shapeOf(noise))
	}
	batchSize := noise.Shape()[0]
	if batchSize == 0 {
		return nil, ErrEmptyBatch
	}
	program, err := net.sampler(batchSize)
	if err != nil {
		return nil, err
	}
	return program.run(noise)
}

// Sample Generates n samples from freshly drawn latent vectors
func (net *GAN) Sample(n int) (*tensor.Dense, error) {
	if n <= 0 {
		return nil, ErrEmptyBatch
	}
	return net.Generate(net.latent.Sample(n))
}

// Discriminate Scores any batch of shape (B, sampleShape...) with dropout disabled. Result has shape (B, 1)
//
// Discriminator can't tell (and doesn't care) whether batch is real or generated.
//
func (net *GAN) Discriminate(samples *tensor.Dense) (*tensor.Dense, error) {
	batchSize, err := net.checkSamples("discriminator input", samples)
	if err != nil {
		return nil, err
	}
	program, err := net.scorer(batchSize)
	if err != nil {
		return nil, err
	}
	return program.run(samples)
}

// TrainDiscriminator Does single update of discriminator parameters
//
// realSamples - batch of real samples (B, sampleShape...)
// Fake batch of the same size is generated from fresh noise without gradient tracking, concatenated with real one
// and labeled as [ones(B); zeros(B)]. Generator parameters are never touched.
//
// Returns loss value and shapes of tensors used
//
func (net *GAN) TrainDiscriminator(realSamples *tensor.Dense) (float64, StepShapes, error) {
	batchSize, err := net.checkSamples("real batch", realSamples)
	if err != nil {
		return 0, StepShapes{}, err
	}
	noise := net.latent.Sample(batchSize)
	fake, err := net.Generate(noise)
	if err != nil {
		return 0, StepShapes{}, errors.Wrap(err, "Can't generate fake batch")
	}
	if fake.Shape()[0] != batchSize {
		return 0, StepShapes{}, shapeMismatch("fake batch", realSamples.Shape(), fake.Shape())
	}
	samples, err := tensor.Concat(0, realSamples, fake)
	if err != nil {
		return 0, StepShapes{}, errors.Wrap(err, "Can't do concatenation of real and fake batches")
	}
	labels := binaryLabels(batchSize, batchSize)
	expected := append(tensor.Shape{2 * batchSize}, net.SampleShape()...)
	if !sameShape(samples.Shape(), expected) {
		return 0, StepShapes{}, shapeMismatch("real/fake concatenation", expected, samples.Shape())
	}

	program, err := net.discriminatorTrain(batchSize)
	if err != nil {
		return 0, StepShapes{}, err
	}
	loss, err := program.run(samples.(*tensor.Dense), labels, net.masks, net.discriminatorSolver)
	if err != nil {
		return 0, StepShapes{}, err
	}
	return loss, StepShapes{
		Noise:  noise.Shape().Clone(),
		Labels: labels.Shape().Clone(),
		Input:  samples.Shape().Clone(),
	}, nil
}

// TrainGenerator Does single update of generator parameters
//
// Fresh noise (batchSize, latentDim) goes through generator and discriminator, loss is computed against ones(batchSize).
// Discriminator takes part in forward and backward passes, but its parameters are not updated.
//
func (net *GAN) TrainGenerator(batchSize int) (float64, StepShapes, error) {
	if batchSize <= 0 {
		return 0, StepShapes{}, ErrEmptyBatch
	}
	noise := net.latent.Sample(batchSize)
	labels := binaryLabels(batchSize, 0)
	program, err := net.generatorTrain(batchSize)
	if err != nil {
		return 0, StepShapes{}, err
	}
	loss, err := program.run(noise, labels, net.masks, net.generatorSolver)
	if err != nil {
		return 0, StepShapes{}, err
	}
	return loss, StepShapes{
		Noise:  noise.Shape().Clone(),
		Labels: labels.Shape().Clone(),
		Input:  append(tensor.Shape{batchSize}, net.SampleShape()...),
	}, nil
}

// Close Releases every cached program
func (net *GAN) Close() error {
	for k, p := range net.samplers {
		p.vm.Close()
		delete(net.samplers, k)
	}
	for k, p := range net.discriminatorTrains {
		p.vm.Close()
		delete(net.discriminatorTrains, k)
	}
	for k, p := range net.generatorTrains {
		p.vm.Close()
		delete(net.generatorTrains, k)
	}
	for k, p := range net.scorers {
		p.vm.Close()
		delete(net.scorers, k)
	}
	return nil
}

func (net *GAN) checkSamples(op string, samples *tensor.Dense) (int, error) {
	if samples == nil || samples.Dims() == 0 {
		return 0, ErrEmptyBatch
	}
	batchSize := samples.Shape()[0]
	if batchSize == 0 {
		return 0, ErrEmptyBatch
	}
	expected := append(tensor.Shape{batchSize}, net.SampleShape()...)
	if !sameShape(samples.Shape(), expected) {
		return 0, shapeMismatch(op, expected, samples.Shape())
	}
	return batchSize, nil
}

func (net *GAN) vmOptions(learnables gorgonia.Nodes) []gorgonia.VMOpt {
	if len(learnables) == 0 {
		return machineOptions(net.device)
	}
	return machineOptions(net.device, gorgonia.BindDualValues(learnables...))
}

// binaryLabels Returns (ones+zeros, 1) tensor: first 'ones' rows are 1.0, the rest are 0.0
func binaryLabels(ones, zeros int) *tensor.Dense {
	backing := make([]float64, ones+zeros)
	for i := 0; i < ones; i++ {
		backing[i] = 1.0
	}
	return tensor.New(tensor.WithShape(ones+zeros, 1), tensor.WithBacking(backing))
}

func shapeOf(t *tensor.Dense) tensor.Shape {
	if t == nil {
		return tensor.Shape{}
	}
	return t.Shape()
}

// samplerProgram Forward-only generator graph with dropout disabled
type samplerProgram struct {
	vm     gorgonia.VM
	input  *gorgonia.Node
	output gorgonia.Value
}

func (net *GAN) sampler(batchSize int) (*samplerProgram, error) {
	if p, ok := net.samplers[batchSize]; ok {
		return p, nil
	}
	g := gorgonia.NewGraph()
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, net.generatorPart.LatentDim()), gorgonia.WithName("generator_input"))
	out, _, err := net.generatorPart.Infer(input, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't build sampling graph for batch_size = %d", batchSize))
	}
	p := &samplerProgram{input: input}
	gorgonia.Read(out, &p.output)
	p.vm = gorgonia.NewTapeMachine(g, net.vmOptions(nil)...)
	net.samplers[batchSize] = p
	return p, nil
}

func (p *samplerProgram) run(noise *tensor.Dense) (*tensor.Dense, error) {
	defer p.vm.Reset()
	if err := gorgonia.Let(p.input, noise); err != nil {
		return nil, errors.Wrap(err, "Can't init input value")
	}
	if err := p.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run VM")
	}
	return cloneDense(p.output)
}

// scorerProgram Forward-only discriminator graph with dropout disabled
type scorerProgram struct {
	vm     gorgonia.VM
	input  *gorgonia.Node
	output gorgonia.Value
}

func (net *GAN) scorer(batchSize int) (*scorerProgram, error) {
	if p, ok := net.scorers[batchSize]; ok {
		return p, nil
	}
	g := gorgonia.NewGraph()
	shp := append(tensor.Shape{batchSize}, net.SampleShape()...)
	input := gorgonia.NewTensor(g, gorgonia.Float64, len(shp), gorgonia.WithShape(shp...), gorgonia.WithName("discriminator_input"))
	out, _, err := net.discriminatorPart.Infer(input, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't build scoring graph for batch_size = %d", batchSize))
	}
	p := &scorerProgram{input: input}
	gorgonia.Read(out, &p.output)
	p.vm = gorgonia.NewTapeMachine(g, net.vmOptions(nil)...)
	net.scorers[batchSize] = p
	return p, nil
}

func (p *scorerProgram) run(samples *tensor.Dense) (*tensor.Dense, error) {
	defer p.vm.Reset()
	if err := gorgonia.Let(p.input, samples); err != nil {
		return nil, errors.Wrap(err, "Can't init input value")
	}
	if err := p.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run VM")
	}
	return cloneDense(p.output)
}

// discriminatorTrainProgram Discriminator graph over 2*B samples with gradients w.r.t. discriminator parameters
type discriminatorTrainProgram struct {
	vm         gorgonia.VM
	input      *gorgonia.Node
	target     *gorgonia.Node
	masks      DropoutMasks
	learnables gorgonia.Nodes
	cost       gorgonia.Value
}

func (net *GAN) discriminatorTrain(batchSize int) (*discriminatorTrainProgram, error) {
	if p, ok := net.discriminatorTrains[batchSize]; ok {
		return p, nil
	}
	g := gorgonia.NewGraph()
	shp := append(tensor.Shape{2 * batchSize}, net.SampleShape()...)
	input := gorgonia.NewTensor(g, gorgonia.Float64, len(shp), gorgonia.WithShape(shp...), gorgonia.WithName("discriminator_train_input"))
	out, learnables, masks, err := net.discriminatorPart.Fwd(input, 2*batchSize)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't build discriminator training graph for batch_size = %d", batchSize))
	}
	target := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(2*batchSize, 1), gorgonia.WithName("discriminator_target"))
	cost, err := BinaryCrossEntropyLoss(out, target)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define discriminator loss")
	}
	gorgonia.WithName("discriminator_loss")(cost)
	if _, err = gorgonia.Grad(cost, learnables...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for discriminator")
	}
	p := &discriminatorTrainProgram{
		input:      input,
		target:     target,
		masks:      masks,
		learnables: learnables,
	}
	gorgonia.Read(cost, &p.cost)
	p.vm = gorgonia.NewTapeMachine(g, net.vmOptions(learnables)...)
	net.discriminatorTrains[batchSize] = p
	return p, nil
}

func (p *discriminatorTrainProgram) run(samples, labels *tensor.Dense, rng *rand.Rand, solver gorgonia.Solver) (float64, error) {
	defer p.vm.Reset()
	if err := gorgonia.Let(p.input, samples); err != nil {
		return 0, errors.Wrap(err, "Can't init discriminator input")
	}
	if err := gorgonia.Let(p.target, labels); err != nil {
		return 0, errors.Wrap(err, "Can't init discriminator target")
	}
	if err := p.masks.Fill(rng); err != nil {
		return 0, errors.Wrap(err, "Can't init discriminator dropout")
	}
	if err := p.vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run discriminator VM")
	}
	if err := solver.Step(gorgonia.NodesToValueGrads(p.learnables)); err != nil {
		return 0, errors.Wrap(err, "Can't do discriminator solver step")
	}
	return scalarOf(p.cost)
}

// generatorTrainProgram Generator followed by discriminator view with gradients w.r.t. generator parameters only
type generatorTrainProgram struct {
	vm         gorgonia.VM
	input      *gorgonia.Node
	target     *gorgonia.Node
	masks      DropoutMasks
	learnables gorgonia.Nodes
	cost       gorgonia.Value
}

func (net *GAN) generatorTrain(batchSize int) (*generatorTrainProgram, error) {
	if p, ok := net.generatorTrains[batchSize]; ok {
		return p, nil
	}
	g := gorgonia.NewGraph()
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, net.generatorPart.LatentDim()), gorgonia.WithName("gan_generator_input"))
	fake, learnables, generatorMasks, err := net.generatorPart.Fwd(input, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't build generator training graph for batch_size = %d", batchSize))
	}
	// Discriminator nodes on this graph share values with discriminator parameters, but they are not learnables here
	out, _, discriminatorMasks, err := net.discriminatorPart.Fwd(fake, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't build discriminator part of generator training graph for batch_size = %d", batchSize))
	}
	target := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, 1), gorgonia.WithName("gan_discriminator_target"))
	cost, err := BinaryCrossEntropyLoss(out, target)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define generator loss")
	}
	gorgonia.WithName("gan_generator_loss")(cost)
	if _, err = gorgonia.Grad(cost, learnables...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for generator")
	}
	p := &generatorTrainProgram{
		input:      input,
		target:     target,
		masks:      append(generatorMasks, discriminatorMasks...),
		learnables: learnables,
	}
	gorgonia.Read(cost, &p.cost)
	p.vm = gorgonia.NewTapeMachine(g, net.vmOptions(learnables)...)
	net.generatorTrains[batchSize] = p
	return p, nil
}

func (p *generatorTrainProgram) run(noise, labels *tensor.Dense, rng *rand.Rand, solver gorgonia.Solver) (float64, error) {
	defer p.vm.Reset()
	if err := gorgonia.Let(p.input, noise); err != nil {
		return 0, errors.Wrap(err, "Can't init generator input")
	}
	if err := gorgonia.Let(p.target, labels); err != nil {
		return 0, errors.Wrap(err, "Can't init generator target")
	}
	if err := p.masks.Fill(rng); err != nil {
		return 0, errors.Wrap(err, "Can't init generator dropout")
	}
	if err := p.vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run generator VM")
	}
	if err := solver.Step(gorgonia.NodesToValueGrads(p.learnables)); err != nil {
		return 0, errors.Wrap(err, "Can't do generator solver step")
	}
	return scalarOf(p.cost)
}

func cloneDense(v gorgonia.Value) (*tensor.Dense, error) {
	dense, ok := v.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Expected *tensor.Dense output, but got %T", v)
	}
	return dense.Clone().(*tensor.Dense), nil
}

func scalarOf(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("Loss has not been computed")
	}
	f, ok := v.Data().(float64)
	if !ok {
		return 0, fmt.Errorf("Expected float64 loss, but got %T", v.Data())
	}
	return f, nil
}

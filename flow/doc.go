/*
Package flow computes dense optical flow (a motion field) between two frames.

An Estimator is selected and configured by an Algorithm, a tagged variant over
the supported algorithm families:

	alg := flow.Algorithm{
	    Kind:       flow.KindSimpleFlow,
	    SimpleFlow: flow.SimpleFlowParams{Layers: 3, AveragingBlockSize: 2, MaxFlow: 4},
	}
	if err := alg.Validate(); err != nil {
	    log.Fatal(err)
	}

	est := flow.NewNative(nil)
	field, err := est.Estimate(ctx, frameA, frameB, alg)
	if err != nil {
	    log.Fatal(err)
	}

The zero Algorithm is KindInvalid. It must be rejected by Validate before it
reaches an Estimator, estimators panic when they receive it.

Building with the with_cv tag enables the OpenCV backed estimator.
*/
package flow

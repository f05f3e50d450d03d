package di

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbchain/errors"
)

type testService struct {
	name string
}

// ========== 注册 ==========

func TestRegisterSingleton(t *testing.T) {
	c := New()

	err := c.RegisterSingleton("svc", func() *testService {
		return &testService{name: "a"}
	})
	require.NoError(t, err)
	assert.True(t, c.IsRegistered("svc"))

	// 重复注册返回冲突
	err = c.RegisterSingleton("svc", func() *testService { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestRegisterSingleton_InvalidArguments(t *testing.T) {
	c := New()

	err := c.RegisterSingleton("", func() int { return 1 })
	assert.True(t, errors.IsInvalidInput(err))

	err = c.RegisterSingleton("svc", nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestRegisterConstructor_UsesReturnTypeName(t *testing.T) {
	c := New()

	err := c.RegisterConstructor(func() *testService {
		return &testService{name: "ctor"}
	})
	require.NoError(t, err)
	assert.True(t, c.IsRegistered("*di.testService"))

	inst, err := c.Resolve("*di.testService")
	require.NoError(t, err)
	assert.Equal(t, "ctor", inst.(*testService).name)
}

func TestRegisterConstructor_RejectsNonFunction(t *testing.T) {
	c := New()

	assert.True(t, errors.IsInvalidInput(c.RegisterConstructor(nil)))
	assert.True(t, errors.IsInvalidInput(c.RegisterConstructor(42)))
	assert.True(t, errors.IsInvalidInput(c.RegisterConstructor(func() {})))
}

func TestRegisterInstance(t *testing.T) {
	c := New()
	svc := &testService{name: "inst"}

	require.NoError(t, c.RegisterInstance("svc", svc))

	got, err := c.Resolve("svc")
	require.NoError(t, err)
	assert.Same(t, svc, got)

	err = c.RegisterInstance("svc", svc)
	assert.True(t, errors.IsConflict(err))
}

// ========== 解析 ==========

func TestResolve_LazySingleton(t *testing.T) {
	c := New()
	calls := 0

	require.NoError(t, c.RegisterSingleton("svc", func() *testService {
		calls++
		return &testService{name: "lazy"}
	}))

	// 注册本身不执行工厂
	assert.Zero(t, calls)

	first, err := c.Resolve("svc")
	require.NoError(t, err)
	second, err := c.Resolve("svc")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestResolve_NotRegistered(t *testing.T) {
	c := New()

	_, err := c.Resolve("missing")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeNotFound))
}

func TestResolve_FactoryErrorNotCached(t *testing.T) {
	c := New()
	calls := 0

	require.NoError(t, c.RegisterSingleton("svc", func() (*testService, error) {
		calls++
		if calls < 3 {
			return nil, errors.NewError(errors.ErrCodeConfig, "bad config")
		}
		return &testService{name: "ok"}, nil
	}))

	// 失败不缓存，错误码原样上抛
	_, err := c.Resolve("svc")
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))

	_, err = c.Resolve("svc")
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))

	// 第三次工厂成功，此后缓存为单例
	inst, err := c.Resolve("svc")
	require.NoError(t, err)
	assert.Equal(t, "ok", inst.(*testService).name)

	again, err := c.Resolve("svc")
	require.NoError(t, err)
	assert.Same(t, inst, again)
	assert.Equal(t, 3, calls)
}

func TestResolve_InjectsFactoryParameters(t *testing.T) {
	c := New()

	require.NoError(t, c.RegisterInstance("*di.testService", &testService{name: "dep"}))
	require.NoError(t, c.RegisterSingleton("wrapper", func(dep *testService) string {
		return "wraps " + dep.name
	}))

	got, err := c.Resolve("wrapper")
	require.NoError(t, err)
	assert.Equal(t, "wraps dep", got)
}

func TestResolve_MissingParameter(t *testing.T) {
	c := New()

	require.NoError(t, c.RegisterSingleton("wrapper", func(dep *testService) string {
		return dep.name
	}))

	_, err := c.Resolve("wrapper")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeDependency))
}

func TestResolveTo(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("svc", &testService{name: "typed"}))

	var svc *testService
	require.NoError(t, c.ResolveTo("svc", &svc))
	assert.Equal(t, "typed", svc.name)

	// 目标必须是可赋值的指针
	var wrong int
	err := c.ResolveTo("svc", &wrong)
	assert.True(t, errors.IsInvalidInput(err))
	assert.True(t, errors.IsInvalidInput(c.ResolveTo("svc", nil)))
}

// ========== 别名 ==========

func TestAlias_ResolvesThroughTarget(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("svc", func() *testService {
		return &testService{name: "target"}
	}))
	require.NoError(t, c.Alias("*di.testService", "svc"))

	byName, err := c.Resolve("svc")
	require.NoError(t, err)
	byAlias, err := c.Resolve("*di.testService")
	require.NoError(t, err)

	assert.Same(t, byName, byAlias)
	assert.True(t, c.IsRegistered("*di.testService"))
}

func TestAlias_Validation(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("svc", &testService{}))

	// 目标未注册
	err := c.Alias("a", "missing")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeNotFound))

	// 别名与已有名称冲突
	err = c.Alias("svc", "svc")
	assert.True(t, errors.IsConflict(err))

	require.NoError(t, c.Alias("a", "svc"))
	err = c.RegisterInstance("a", &testService{})
	assert.True(t, errors.IsConflict(err), "别名占用的名称不允许再注册")
}

// ========== 清理与枚举 ==========

func TestRegisteredNamesAndClear(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("svc", func() int { return 1 }))
	require.NoError(t, c.RegisterInstance("inst", 2))
	require.NoError(t, c.Alias("alias", "svc"))

	assert.ElementsMatch(t, []string{"svc", "inst", "alias"}, c.RegisteredNames())

	c.Clear()
	assert.Empty(t, c.RegisteredNames())
	assert.False(t, c.IsRegistered("svc"))
}

// ========== 并发 ==========

func TestResolve_ConcurrentSingleInstance(t *testing.T) {
	c := New()
	var mu sync.Mutex
	calls := 0

	require.NoError(t, c.RegisterSingleton("svc", func() *testService {
		mu.Lock()
		calls++
		mu.Unlock()
		return &testService{name: "shared"}
	}))

	const workers = 16
	results := make([]any, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			inst, err := c.Resolve("svc")
			assert.NoError(t, err)
			results[i] = inst
		}(i)
	}
	wg.Wait()

	// 并发首次解析可能执行多次工厂，但所有调用方拿到同一实例
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

// ========== 基准 ==========

func BenchmarkResolve(b *testing.B) {
	c := New()
	_ = c.RegisterInstance("svc", &testService{name: "bench"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Resolve("svc")
	}
}

func BenchmarkResolveAlias(b *testing.B) {
	c := New()
	_ = c.RegisterInstance("svc", &testService{name: "bench"})
	_ = c.Alias("alias", "svc")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Resolve("alias")
	}
}

func BenchmarkRegisterAndResolve(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := New()
		name := fmt.Sprintf("svc-%d", i)
		_ = c.RegisterSingleton(name, func() *testService { return &testService{} })
		_, _ = c.Resolve(name)
	}
}
